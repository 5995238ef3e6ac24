package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

func TestBuildSyncEvent_StartsPendingWithZeroRetries(t *testing.T) {
	event, err := buildSyncEvent(&NewSyncEvent{
		OrgId:         "org-1",
		EventType:     "controls_INSERT",
		SourceModule:  "controls_kri",
		TargetModules: []string{"governance", "risk_appetite"},
		EntityType:    "controls",
		EntityId:      "15",
		EventData:     map[string]interface{}{"operation": "INSERT"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if event.SyncStatus != SyncEventStatusPending {
		t.Fatalf("new event status = %s, want pending", event.SyncStatus)
	}
	if event.RetryCount != 0 {
		t.Fatalf("new event retry_count = %d, want 0", event.RetryCount)
	}
	if event.MaxRetries != DefaultMaxRetries {
		t.Fatalf("new event max_retries = %d, want %d", event.MaxRetries, DefaultMaxRetries)
	}
	if got := event.TargetModuleList(); len(got) != 2 || got[0] != "governance" || got[1] != "risk_appetite" {
		t.Fatalf("target modules round trip failed: %v", got)
	}
	if event.ProcessedAt != nil {
		t.Fatal("new event should not carry a processed timestamp")
	}
}

func TestBuildSyncEvent_RequiresOrg(t *testing.T) {
	if _, err := buildSyncEvent(&NewSyncEvent{EventType: "controls_INSERT"}); err == nil {
		t.Fatal("missing org id should fail")
	}
}

func TestSyncEventStatusUpdates_CompletedStampsProcessedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &SyncEvent{ID: 3, OrgId: "org-1"}

	updates, err := syncEventStatusUpdates(event, SyncEventStatusCompleted, nil, now)
	if err != nil {
		t.Fatalf("updates: %v", err)
	}
	if updates["sync_status"] != SyncEventStatusCompleted {
		t.Fatalf("sync_status = %v, want completed", updates["sync_status"])
	}
	stamped, ok := updates["processed_at"].(*time.Time)
	if !ok || stamped == nil || !stamped.Equal(now) {
		t.Fatalf("completed should stamp processed_at, got %v", updates["processed_at"])
	}
}

func TestSyncEventStatusUpdates_TerminalFailureKeepsProcessedAtUnset(t *testing.T) {
	for _, status := range []SyncEventStatus{SyncEventStatusFailed, SyncEventStatusPartial, SyncEventStatusProcessing} {
		updates, err := syncEventStatusUpdates(&SyncEvent{ID: 3}, status, nil, time.Now())
		if err != nil {
			t.Fatalf("updates for %s: %v", status, err)
		}
		if _, ok := updates["processed_at"]; ok {
			t.Fatalf("%s must not stamp processed_at", status)
		}
	}
}

func TestSyncEventStatusUpdates_MergesErrorDetails(t *testing.T) {
	event := &SyncEvent{
		ID:           3,
		ErrorDetails: []byte(`{"governance":"timeout","controls":"refused"}`),
	}

	updates, err := syncEventStatusUpdates(event, SyncEventStatusFailed, map[string]interface{}{
		"governance": "publish failed",
	}, time.Now())
	if err != nil {
		t.Fatalf("updates: %v", err)
	}

	merged := utils.SafeJSONObject(updates["error_details"].([]byte))
	if merged["governance"] != "publish failed" {
		t.Fatalf("new detail should win: %v", merged["governance"])
	}
	if merged["controls"] != "refused" {
		t.Fatalf("prior detail should survive the merge: %v", merged["controls"])
	}
}
