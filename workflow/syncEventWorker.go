package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncEventWorker drives pending sync events through the
// pending -> processing -> completed | failed | partial state machine.
// Each event is delivered to its target modules on the module events
// topic; a delivery round that leaves undelivered targets either requeues
// the event (retry budget remaining) or finishes it as partial/failed.
type SyncEventWorker struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	WorkerID string

	BatchSize      int
	PollInterval   time.Duration
	InitialBackoff time.Duration
}

func NewSyncEventWorker(db *gorm.DB, logger *logrus.Logger) *SyncEventWorker {
	return &SyncEventWorker{
		DB:             db,
		Logger:         logger,
		WorkerID:       uuid.NewString(),
		BatchSize:      25,
		PollInterval:   time.Second,
		InitialBackoff: 10 * time.Second,
	}
}

func (w *SyncEventWorker) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	// Sync events span every organization.
	ctx = utils.SetSkipTenantScopeInContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.PollInterval):
		}
	}
}

func (w *SyncEventWorker) processOnce(ctx context.Context) {
	if w.DB == nil {
		return
	}
	now := time.Now().UTC()

	var claimed []models.SyncEvent
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("sync_status = ?", models.SyncEventStatusPending).
			Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
			Order("id ASC").
			Limit(w.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		ids := make([]int, 0, len(claimed))
		for _, e := range claimed {
			ids = append(ids, e.ID)
		}
		return tx.Model(&models.SyncEvent{}).
			Where("id IN ?", ids).
			Update("sync_status", models.SyncEventStatusProcessing).Error
	})
	if err != nil {
		if w.Logger != nil {
			config.LogError(w.Logger, "syncEventWorker.go", "processOnce", "claim batch", w.WorkerID, err)
		}
		return
	}

	for _, event := range claimed {
		w.processEvent(ctx, event)
	}
}

func (w *SyncEventWorker) processEvent(ctx context.Context, event models.SyncEvent) {
	// One org's events are delivered by one worker at a time. If the lock
	// is held elsewhere the event simply goes back to pending.
	locker := config.GetRedisLock()
	var lock *redislock.Lock
	if locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, fmt.Sprintf("sync-events:%s", event.OrgId), 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			// Another worker is delivering this org right now. Nothing was
			// attempted, so the event goes back without spending a retry.
			w.returnToPending(ctx, event)
			return
		} else if err != nil && w.Logger != nil {
			config.LogError(w.Logger, "syncEventWorker.go", "processEvent", "obtain org lock", event.OrgId, err)
		}
	}
	defer func() {
		if lock != nil {
			_ = lock.Release(ctx)
		}
	}()

	targets := event.TargetModuleList()
	delivered := 0
	deliveryErrors := map[string]interface{}{}
	for _, target := range targets {
		payload := map[string]interface{}{
			"event_id":      event.ID,
			"event_type":    event.EventType,
			"source_module": event.SourceModule,
			"entity_type":   event.EntityType,
			"entity_id":     event.EntityId,
			"event_data":    utils.SafeJSONObject(event.EventData),
		}
		if _, err := config.PublishModuleEvent(ctx, event.OrgId, target, payload); err != nil {
			deliveryErrors[target] = err.Error()
			continue
		}
		delivered++
	}

	status, retry := DispositionAfterDelivery(delivered, len(deliveryErrors), event.RetryCount, event.MaxRetries)
	if retry {
		w.requeue(ctx, event, deliveryErrors)
		return
	}
	if status == models.SyncEventStatusCompleted {
		w.finish(ctx, event, status, nil)
		return
	}
	w.finish(ctx, event, status, deliveryErrors)
}

// DispositionAfterDelivery decides an event's next state after one delivery
// round that left failed targets undelivered. A true second return means the
// event goes back to pending with one retry spent; retries are only ever
// spent here, never on claim or lock contention, so retry_count stays within
// the event's max_retries budget.
func DispositionAfterDelivery(delivered int, failed int, retryCount int, maxRetries int) (models.SyncEventStatus, bool) {
	if failed == 0 {
		return models.SyncEventStatusCompleted, false
	}
	if retryCount+1 < maxRetries {
		return models.SyncEventStatusPending, true
	}
	if delivered > 0 {
		return models.SyncEventStatusPartial, false
	}
	return models.SyncEventStatusFailed, false
}

func (w *SyncEventWorker) requeue(ctx context.Context, event models.SyncEvent, errorDetails map[string]interface{}) {
	err := w.DB.WithContext(ctx).Model(&models.SyncEvent{}).
		Where("id = ?", event.ID).
		Updates(requeueUpdates(event, errorDetails, w.InitialBackoff, time.Now().UTC())).Error
	if err != nil && w.Logger != nil {
		config.LogError(w.Logger, "syncEventWorker.go", "requeue", "update event", event.ID, err)
	}
}

// requeueUpdates spends one retry and schedules the next delivery attempt.
func requeueUpdates(event models.SyncEvent, errorDetails map[string]interface{}, initialBackoff time.Duration, now time.Time) map[string]interface{} {
	next := now.Add(PublishBackoff(initialBackoff, event.RetryCount+1))
	return map[string]interface{}{
		"sync_status":     models.SyncEventStatusPending,
		"retry_count":     gorm.Expr("retry_count + 1"),
		"next_attempt_at": &next,
		"error_details":   utils.MustJSON(errorDetails),
	}
}

func (w *SyncEventWorker) returnToPending(ctx context.Context, event models.SyncEvent) {
	err := w.DB.WithContext(ctx).Model(&models.SyncEvent{}).
		Where("id = ?", event.ID).
		Updates(contentionUpdates(w.PollInterval, time.Now().UTC())).Error
	if err != nil && w.Logger != nil {
		config.LogError(w.Logger, "syncEventWorker.go", "returnToPending", "update event", event.ID, err)
	}
}

// contentionUpdates defers a contended event briefly. The retry counter is
// not part of the update.
func contentionUpdates(pollInterval time.Duration, now time.Time) map[string]interface{} {
	next := now.Add(pollInterval)
	return map[string]interface{}{
		"sync_status":     models.SyncEventStatusPending,
		"next_attempt_at": &next,
	}
}

func (w *SyncEventWorker) finish(ctx context.Context, event models.SyncEvent, status models.SyncEventStatus, errorDetails map[string]interface{}) {
	if _, err := models.UpdateSyncEventStatus(ctx, event.OrgId, event.ID, status, errorDetails); err != nil && w.Logger != nil {
		config.LogError(w.Logger, "syncEventWorker.go", "finish", "update event", event.ID, err)
	}
	if w.Logger != nil && status != models.SyncEventStatusCompleted {
		w.Logger.WithFields(logrus.Fields{
			"field":       "SyncEventWorker",
			"org_id":      event.OrgId,
			"event_id":    event.ID,
			"event_type":  event.EventType,
			"sync_status": status,
			"retry_count": event.RetryCount,
		}).Warn("sync event finished without full delivery")
	}
}
