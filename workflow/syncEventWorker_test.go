package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/models"
)

func TestDispositionAfterDelivery(t *testing.T) {
	cases := []struct {
		name       string
		delivered  int
		failed     int
		retryCount int
		maxRetries int
		status     models.SyncEventStatus
		retry      bool
	}{
		{"all delivered", 3, 0, 0, 3, models.SyncEventStatusCompleted, false},
		{"no targets", 0, 0, 0, 3, models.SyncEventStatusCompleted, false},
		{"first failure with budget", 1, 2, 0, 3, models.SyncEventStatusPending, true},
		{"last retry still in budget", 0, 3, 1, 3, models.SyncEventStatusPending, true},
		{"budget spent some delivered", 1, 2, 2, 3, models.SyncEventStatusPartial, false},
		{"budget spent none delivered", 0, 3, 2, 3, models.SyncEventStatusFailed, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, retry := DispositionAfterDelivery(tc.delivered, tc.failed, tc.retryCount, tc.maxRetries)
			if status != tc.status || retry != tc.retry {
				t.Fatalf("got status=%s retry=%v, want status=%s retry=%v", status, retry, tc.status, tc.retry)
			}
		})
	}
}

func TestRequeueUpdates_SpendsOneRetryWithBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := models.SyncEvent{ID: 7, RetryCount: 1, MaxRetries: 3}

	updates := requeueUpdates(event, map[string]interface{}{"governance": "publish failed"}, 10*time.Second, now)

	if updates["sync_status"] != models.SyncEventStatusPending {
		t.Fatalf("requeue should go back to pending, got %v", updates["sync_status"])
	}
	if _, ok := updates["retry_count"]; !ok {
		t.Fatal("requeue after a delivery round must spend a retry")
	}
	next, ok := updates["next_attempt_at"].(*time.Time)
	if !ok || next == nil {
		t.Fatal("requeue should schedule the next attempt")
	}
	want := now.Add(PublishBackoff(10*time.Second, 2))
	if !next.Equal(want) {
		t.Fatalf("next attempt at %v, want %v", next, want)
	}
}

// An org lock held by another worker means no delivery was attempted, so
// repeated contention must leave the retry budget untouched. Otherwise an
// event could reach a terminal state without a single real attempt.
func TestContentionUpdates_DoesNotSpendRetry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		updates := contentionUpdates(time.Second, now)
		if _, ok := updates["retry_count"]; ok {
			t.Fatal("lock contention must not touch retry_count")
		}
		if updates["sync_status"] != models.SyncEventStatusPending {
			t.Fatalf("contended event should go back to pending, got %v", updates["sync_status"])
		}
		next, ok := updates["next_attempt_at"].(*time.Time)
		if !ok || next == nil || !next.Equal(now.Add(time.Second)) {
			t.Fatalf("contended event should be deferred one poll interval, got %v", updates["next_attempt_at"])
		}
	}
}
