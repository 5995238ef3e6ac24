package workflow

import (
	"sync"
	"testing"
	"time"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// dispatcher semantics:
// - retry backoff grows exponentially and is capped
// - concurrent claimers never publish the same outbox record twice
//
// Full DB+PubSub integration tests should be added in an environment that
// can run MySQL + Pub/Sub emulator.

func TestPublishBackoff_Growth(t *testing.T) {
	initial := 5 * time.Second

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
	}
	for _, tc := range cases {
		if got := PublishBackoff(initial, tc.attempt); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestPublishBackoff_Cap(t *testing.T) {
	if got := PublishBackoff(5*time.Second, 50); got != 10*time.Minute {
		t.Fatalf("backoff should cap at ten minutes, got %v", got)
	}
}

// fakeClaimer mimics the SKIP LOCKED claim: a record can only be claimed by
// one dispatcher, and a claimed record is invisible to others.
type fakeClaimer struct {
	mu      sync.Mutex
	claimed map[int]string
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{claimed: map[int]string{}}
}

func (c *fakeClaimer) claim(recordID int, dispatcherID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.claimed[recordID]; taken {
		return false
	}
	c.claimed[recordID] = dispatcherID
	return true
}

func TestConcurrentClaims_PublishAtMostOnce(t *testing.T) {
	c := newFakeClaimer()

	published := map[int]int{}
	var pubMu sync.Mutex

	var wg sync.WaitGroup
	for d := 0; d < 8; d++ {
		wg.Add(1)
		go func(dispatcher int) {
			defer wg.Done()
			for rec := 1; rec <= 100; rec++ {
				if !c.claim(rec, string(rune('A'+dispatcher))) {
					continue
				}
				pubMu.Lock()
				published[rec]++
				pubMu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	if len(published) != 100 {
		t.Fatalf("expected all 100 records published, got %d", len(published))
	}
	for rec, count := range published {
		if count != 1 {
			t.Fatalf("record %d published %d times", rec, count)
		}
	}
}
