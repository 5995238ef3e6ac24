package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("grc-backend/orchestration")

type orchestratorState int

const (
	stateUninitialized orchestratorState = iota
	stateInitializing
	stateReady
)

var (
	ErrOrchestratorBusy      = errors.New("orchestrator is initializing")
	ErrInitializeInterrupted = errors.New("initialization interrupted by cleanup")
)

// Orchestrator owns one organization's change-feed subscriptions and fans
// each delivered change out to lineage, quality and sync-event work. It is
// a single-owner object: create, Initialize, and eventually Cleanup. All
// lifecycle transitions are serialized by an internal mutex, so concurrent
// Initialize/Cleanup calls cannot duplicate subscriptions.
type Orchestrator struct {
	OrgId  string
	Store  Store
	Logger *logrus.Logger

	mu        sync.Mutex
	state     orchestratorState
	cancel    context.CancelFunc
	receivers sync.WaitGroup
	subs      map[string]*pubsub.Subscription
}

func NewOrchestrator(orgId string, store Store, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		OrgId:  orgId,
		Store:  store,
		Logger: logger,
		subs:   map[string]*pubsub.Subscription{},
	}
}

// Initialize opens one filtered change-feed subscription per watched table.
// Calling it again once ready is a no-op; while another caller is mid-setup
// it returns ErrOrchestratorBusy. A table whose subscription cannot be
// established is logged and skipped; its sync is simply not active.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	started, err := o.beginInitialize()
	if err != nil || !started {
		return err
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		o.abortInitialize()
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, config.ChangeFeedTopicName())
	if err != nil {
		o.abortInitialize()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	subs := map[string]*pubsub.Subscription{}

	for _, table := range WatchedTables {
		sub, err := config.CreateSubscriptionIfNotExists(client, o.subscriptionName(table), topic, o.subscriptionFilter(table))
		if err != nil {
			if o.Logger != nil {
				config.LogError(o.Logger, "orchestrator.go", "Initialize", "subscribe "+table, o.OrgId, err)
			}
			continue
		}
		// One message at a time per table preserves the feed's delivery order.
		sub.ReceiveSettings.NumGoroutines = 1
		sub.ReceiveSettings.MaxOutstandingMessages = 1
		subs[table] = sub

		o.receivers.Add(1)
		go func(s *pubsub.Subscription, tableName string) {
			defer o.receivers.Done()
			err := s.Receive(runCtx, func(msgCtx context.Context, msg *pubsub.Message) {
				o.handleDelivery(msgCtx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) && o.Logger != nil {
				config.LogError(o.Logger, "orchestrator.go", "Initialize", "receive "+tableName, o.OrgId, err)
			}
		}(sub, table)
	}

	if !o.finishInitialize(cancel, subs) {
		// Cleanup ran while subscriptions were being set up.
		cancel()
		return ErrInitializeInterrupted
	}
	return nil
}

// beginInitialize claims the Uninitialized -> Initializing transition. The
// first return is true only for the caller that must perform setup; an
// already ready orchestrator yields (false, nil), a concurrent initializer
// (false, ErrOrchestratorBusy).
func (o *Orchestrator) beginInitialize() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case stateReady:
		return false, nil
	case stateInitializing:
		return false, ErrOrchestratorBusy
	}
	o.state = stateInitializing
	return true, nil
}

func (o *Orchestrator) abortInitialize() {
	o.mu.Lock()
	if o.state == stateInitializing {
		o.state = stateUninitialized
	}
	o.mu.Unlock()
}

// finishInitialize commits the setup. It reports false when the state was
// changed underneath the initializer, in which case nothing is kept.
func (o *Orchestrator) finishInitialize(cancel context.CancelFunc, subs map[string]*pubsub.Subscription) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != stateInitializing {
		return false
	}
	o.cancel = cancel
	o.subs = subs
	o.state = stateReady
	return true
}

// Cleanup stops every receiver and resets the orchestrator so it can be
// initialized again. Safe to call repeatedly and from any state. In-flight
// handler work is not cancelled, only future deliveries.
func (o *Orchestrator) Cleanup() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.subs = map[string]*pubsub.Subscription{}
	o.state = stateUninitialized
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.receivers.Wait()
}

func (o *Orchestrator) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == stateReady
}

func (o *Orchestrator) subscriptionName(table string) string {
	return fmt.Sprintf("grc-sync-%s-%s", strings.ReplaceAll(table, "_", "-"), o.OrgId)
}

func (o *Orchestrator) subscriptionFilter(table string) string {
	return fmt.Sprintf(`attributes.table_name = %q AND attributes.org_id = %q`, table, o.OrgId)
}

func (o *Orchestrator) handleDelivery(ctx context.Context, msg *pubsub.Message) {
	// At-least-once: always ack. A failed step is logged and recorded on the
	// fanout result; redelivery would only duplicate lineage/quality rows.
	defer msg.Ack()

	var envelope config.ChangeFeedMessage
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		if o.Logger != nil {
			config.LogError(o.Logger, "orchestrator.go", "handleDelivery", "unmarshal", string(msg.Data), err)
		}
		return
	}
	o.HandleChange(ctx, DecodeChangeNotification(envelope))
}

// HandleChange runs the fan-out for one change notification. Every step is
// independently wrapped: a failure in quality scoring or lineage recording
// is logged and collected, never aborting the sibling steps.
func (o *Orchestrator) HandleChange(ctx context.Context, note ChangeNotification) FanoutResult {
	ctx, span := tracer.Start(ctx, "orchestration.HandleChange", trace.WithAttributes(
		attribute.String("table_name", note.TableName),
		attribute.String("event_type", string(note.EventType)),
	))
	defer span.End()

	result := FanoutResult{}

	targetModules := ResolveTargetModules(note.TableName)
	if len(targetModules) == 0 {
		// Unmapped tables produce no propagation work at all.
		result.Dropped = true
		return result
	}
	sourceModule := ResolveSourceModule(note.TableName)

	event, err := o.Store.CreateSyncEvent(ctx, &models.NewSyncEvent{
		OrgId:         note.OrgId,
		EventType:     fmt.Sprintf("%s_%s", note.TableName, note.EventType),
		SourceModule:  sourceModule,
		TargetModules: targetModules,
		EntityType:    note.TableName,
		EntityId:      note.RecordId,
		EventData: map[string]interface{}{
			"operation":  string(note.EventType.Operation()),
			"new_record": note.NewRecord,
			"old_record": note.OldRecord,
			"timestamp":  time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		result.SyncEventErr = err
		o.logStep("create sync event", note, err)
	} else {
		result.SyncEvent = event
	}

	if note.EventType == models.ChangeEventInsert || note.EventType == models.ChangeEventUpdate {
		if err := o.scoreQuality(ctx, note); err != nil {
			result.QualityErr = err
			o.logStep("score quality", note, err)
		}
	}

	if note.NewRecord != nil {
		if err := o.recordLineage(ctx, note); err != nil {
			result.LineageErr = err
			o.logStep("record lineage", note, err)
		}
	}

	return result
}

func (o *Orchestrator) scoreQuality(ctx context.Context, note ChangeNotification) error {
	if note.NewRecord == nil {
		return nil
	}
	rules, err := o.Store.ActiveRulesForTable(ctx, note.OrgId, note.TableName)
	if err != nil {
		return err
	}
	metrics := BuildQualityMetrics(note.OrgId, note.TableName, note.RecordId, note.NewRecord, rules)
	_, err = o.Store.CreateQualityMetrics(ctx, metrics)
	return err
}

func (o *Orchestrator) recordLineage(ctx context.Context, note ChangeNotification) error {
	lineage := BuildLineage(note.OrgId, note.TableName, note.RecordId, note.NewRecord, note.EventType.Operation())
	lineage.CreatedBy = note.CorrelationId
	_, err := o.Store.CreateLineage(ctx, lineage)
	return err
}

// TriggerManualSync bypasses the listener and enqueues propagation work
// directly, for administrator-initiated sync.
func (o *Orchestrator) TriggerManualSync(ctx context.Context, entityType string, entityId string, targetModules []string) (*models.SyncEvent, error) {
	payload := ManualSyncPayload{
		Operation:   models.OperationTypeSync,
		TriggeredAt: time.Now(),
	}
	return o.Store.CreateSyncEvent(ctx, &models.NewSyncEvent{
		OrgId:         o.OrgId,
		EventType:     fmt.Sprintf("%s_sync", entityType),
		SourceModule:  models.SyncSourceManual,
		TargetModules: targetModules,
		EntityType:    entityType,
		EntityId:      entityId,
		EventData:     payload.toMap(),
	})
}

func (o *Orchestrator) logStep(step string, note ChangeNotification, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.WithFields(logrus.Fields{
		"module":     "orchestration",
		"org_id":     note.OrgId,
		"table_name": note.TableName,
		"event_type": note.EventType,
		"record_id":  note.RecordId,
	}).Error(step + ": " + err.Error())
}
