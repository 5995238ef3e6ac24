package orchestration

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// fakeStore records every write the fan-out attempts. Per-step error
// injection lets tests assert that a failing step never aborts siblings.
type fakeStore struct {
	lineage    []*models.DataLineage
	metrics    []*models.DataQualityMetrics
	events     []*models.NewSyncEvent
	rules      []models.DataValidationRule
	lineageErr error
	metricsErr error
	eventErr   error
	rulesErr   error
}

func (s *fakeStore) CreateLineage(_ context.Context, lineage *models.DataLineage) (*models.DataLineage, error) {
	if s.lineageErr != nil {
		return nil, s.lineageErr
	}
	s.lineage = append(s.lineage, lineage)
	return lineage, nil
}

func (s *fakeStore) CreateQualityMetrics(_ context.Context, metrics *models.DataQualityMetrics) (*models.DataQualityMetrics, error) {
	if s.metricsErr != nil {
		return nil, s.metricsErr
	}
	s.metrics = append(s.metrics, metrics)
	return metrics, nil
}

func (s *fakeStore) CreateSyncEvent(_ context.Context, input *models.NewSyncEvent) (*models.SyncEvent, error) {
	if s.eventErr != nil {
		return nil, s.eventErr
	}
	s.events = append(s.events, input)
	return &models.SyncEvent{
		ID:            len(s.events),
		OrgId:         input.OrgId,
		EventType:     input.EventType,
		SourceModule:  input.SourceModule,
		TargetModules: utils.MustJSON(input.TargetModules),
		EntityType:    input.EntityType,
		EntityId:      input.EntityId,
		SyncStatus:    models.SyncEventStatusPending,
		MaxRetries:    models.DefaultMaxRetries,
	}, nil
}

func (s *fakeStore) ActiveRulesForTable(_ context.Context, _ string, _ string) ([]models.DataValidationRule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	return s.rules, nil
}

func newTestOrchestrator(store *fakeStore) *Orchestrator {
	return NewOrchestrator("org-1", store, nil)
}

func insertNotification(table string, record map[string]interface{}) ChangeNotification {
	return ChangeNotification{
		OrgId:     "org-1",
		TableName: table,
		RecordId:  "rec-1",
		EventType: models.ChangeEventInsert,
		NewRecord: record,
	}
}

func TestHandleChange_ControlsInsertFanout(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	result := o.HandleChange(context.Background(), insertNotification("controls", map[string]interface{}{"name": "SOX-1"}))
	if result.Dropped || result.Failed() {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(store.events) != 1 {
		t.Fatalf("expected one sync event, got %d", len(store.events))
	}
	event := store.events[0]
	if event.EventType != "controls_INSERT" {
		t.Fatalf("event type should encode table and change kind, got %q", event.EventType)
	}
	if event.SourceModule != "controls_kri" {
		t.Fatalf("controls belong to controls_kri, got %q", event.SourceModule)
	}
	wantTargets := []string{"incident_management", "governance", "risk_appetite"}
	if len(event.TargetModules) != len(wantTargets) {
		t.Fatalf("unexpected targets: %v", event.TargetModules)
	}
	for i, m := range wantTargets {
		if event.TargetModules[i] != m {
			t.Fatalf("target %d: got %q, want %q", i, event.TargetModules[i], m)
		}
	}

	if len(store.metrics) != 1 {
		t.Fatalf("insert should score quality, got %d snapshots", len(store.metrics))
	}
	if len(store.lineage) != 1 {
		t.Fatalf("insert with a new record should record lineage, got %d rows", len(store.lineage))
	}
}

func TestHandleChange_IncidentLogTargets(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	o.HandleChange(context.Background(), insertNotification("incident_logs", map[string]interface{}{"title": "outage"}))

	if len(store.events) != 1 {
		t.Fatalf("expected one sync event, got %d", len(store.events))
	}
	event := store.events[0]
	if event.SourceModule != "incident_management" {
		t.Fatalf("unexpected source module %q", event.SourceModule)
	}
	want := []string{"governance", "controls", "risk_appetite", "business_continuity"}
	for i, m := range want {
		if event.TargetModules[i] != m {
			t.Fatalf("target %d: got %q, want %q", i, event.TargetModules[i], m)
		}
	}
}

func TestHandleChange_UnmappedTableDropsSilently(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	result := o.HandleChange(context.Background(), insertNotification("audit_trails", map[string]interface{}{"x": 1}))
	if !result.Dropped {
		t.Fatal("unmapped table should be dropped")
	}
	if len(store.events) != 0 || len(store.metrics) != 0 || len(store.lineage) != 0 {
		t.Fatal("dropped change must produce no writes at all")
	}
}

func TestHandleChange_DeleteSkipsQualityAndLineage(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	note := ChangeNotification{
		OrgId:     "org-1",
		TableName: "controls",
		RecordId:  "rec-1",
		EventType: models.ChangeEventDelete,
		OldRecord: map[string]interface{}{"name": "SOX-1"},
	}
	result := o.HandleChange(context.Background(), note)
	if result.Failed() {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if len(store.events) != 1 {
		t.Fatal("delete should still enqueue a sync event")
	}
	if store.events[0].EventType != "controls_DELETE" {
		t.Fatalf("unexpected event type %q", store.events[0].EventType)
	}
	if len(store.metrics) != 0 {
		t.Fatal("delete should not score quality")
	}
	if len(store.lineage) != 0 {
		t.Fatal("delete without a new record should not write lineage")
	}
}

func TestHandleChange_StepFailuresDoNotAbortSiblings(t *testing.T) {
	store := &fakeStore{eventErr: errors.New("event insert down")}
	o := newTestOrchestrator(store)

	result := o.HandleChange(context.Background(), insertNotification("controls", map[string]interface{}{"name": "SOX-1"}))
	if result.SyncEventErr == nil {
		t.Fatal("sync event failure should surface on the result")
	}
	if len(store.metrics) != 1 || len(store.lineage) != 1 {
		t.Fatal("quality and lineage should run despite the sync event failure")
	}

	store = &fakeStore{rulesErr: errors.New("rules unavailable")}
	o = newTestOrchestrator(store)
	result = o.HandleChange(context.Background(), insertNotification("controls", map[string]interface{}{"name": "SOX-1"}))
	if result.QualityErr == nil {
		t.Fatal("quality failure should surface on the result")
	}
	if len(store.events) != 1 || len(store.lineage) != 1 {
		t.Fatal("sync event and lineage should run despite the quality failure")
	}
}

func TestHandleChange_QualityUsesActiveRules(t *testing.T) {
	store := &fakeStore{rules: []models.DataValidationRule{
		makeRule(t, "name-format", models.RuleTypeFormat, map[string]interface{}{"name": "^[A-Z]"}),
	}}
	o := newTestOrchestrator(store)

	o.HandleChange(context.Background(), insertNotification("controls", map[string]interface{}{"name": "lowercase"}))
	if len(store.metrics) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(store.metrics))
	}
	if store.metrics[0].QualityScore != 80 {
		t.Fatalf("one violation should score 80, got %d", store.metrics[0].QualityScore)
	}
}

func TestTriggerManualSync(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	event, err := o.TriggerManualSync(context.Background(), "controls", "c-9", []string{"governance"})
	if err != nil {
		t.Fatalf("manual sync: %v", err)
	}
	if event.EventType != "controls_sync" {
		t.Fatalf("unexpected event type %q", event.EventType)
	}
	if store.events[0].SourceModule != models.SyncSourceManual {
		t.Fatalf("manual sync source should be %q, got %q", models.SyncSourceManual, store.events[0].SourceModule)
	}
	if store.events[0].EntityId != "c-9" {
		t.Fatalf("unexpected entity id %q", store.events[0].EntityId)
	}
}

func TestResolveTargetModules_ReturnsCopy(t *testing.T) {
	first := ResolveTargetModules("controls")
	first[0] = "mutated"
	second := ResolveTargetModules("controls")
	if second[0] == "mutated" {
		t.Fatal("callers must not be able to mutate the mapping")
	}
}

func TestResolveSourceModule_UnknownDefault(t *testing.T) {
	if got := ResolveSourceModule("audit_trails"); got != models.SyncSourceUnknown {
		t.Fatalf("unmapped table should resolve to %q, got %q", models.SyncSourceUnknown, got)
	}
	for _, table := range WatchedTables {
		if ResolveSourceModule(table) == models.SyncSourceUnknown {
			t.Fatalf("watched table %q has no source module", table)
		}
	}
}

func TestOrchestratorCleanup_Reinitializable(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{})
	o.Cleanup()
	o.Cleanup()
	if o.Ready() {
		t.Fatal("orchestrator should not report ready after cleanup")
	}
}

func TestOrchestratorLifecycle_ConcurrentInitializeIsBusy(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{})

	started, err := o.beginInitialize()
	if err != nil || !started {
		t.Fatalf("first begin should claim the transition, got started=%v err=%v", started, err)
	}
	if _, err := o.beginInitialize(); !errors.Is(err, ErrOrchestratorBusy) {
		t.Fatalf("begin during setup should be busy, got %v", err)
	}

	if !o.finishInitialize(func() {}, nil) {
		t.Fatal("finish should commit an uninterrupted setup")
	}
	if !o.Ready() {
		t.Fatal("orchestrator should be ready after commit")
	}

	started, err = o.beginInitialize()
	if err != nil || started {
		t.Fatalf("begin once ready should be a no-op, got started=%v err=%v", started, err)
	}
}

func TestOrchestratorLifecycle_CleanupDuringSetupAbortsCommit(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{})

	if started, err := o.beginInitialize(); err != nil || !started {
		t.Fatalf("begin failed: started=%v err=%v", started, err)
	}
	o.Cleanup()

	if o.finishInitialize(func() {}, nil) {
		t.Fatal("finish should not commit after cleanup reset the state")
	}
	if o.Ready() {
		t.Fatal("orchestrator should stay uninitialized")
	}
}
