package models

import "testing"

func TestSyncEventStatusTerminal(t *testing.T) {
	terminal := []SyncEventStatus{SyncEventStatusCompleted, SyncEventStatusFailed, SyncEventStatusPartial}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []SyncEventStatus{SyncEventStatusPending, SyncEventStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestChangeEventTypeOperation(t *testing.T) {
	cases := map[ChangeEventType]OperationType{
		ChangeEventInsert:     OperationTypeCreate,
		ChangeEventUpdate:     OperationTypeUpdate,
		ChangeEventDelete:     OperationTypeDelete,
		ChangeEventType("??"): OperationTypeSync,
	}
	for event, want := range cases {
		if got := event.Operation(); got != want {
			t.Errorf("%s: got %s, want %s", event, got, want)
		}
	}
}

func TestRuleAppliesToTable(t *testing.T) {
	exact := DataValidationRule{TargetTables: []byte(`["controls","incident_logs"]`)}
	if !exact.AppliesToTable("controls") {
		t.Error("rule should apply to a listed table")
	}
	if exact.AppliesToTable("kri_definitions") {
		t.Error("rule should not apply to an unlisted table")
	}

	wildcard := DataValidationRule{TargetTables: []byte(`["*"]`)}
	if !wildcard.AppliesToTable("anything_at_all") {
		t.Error("wildcard rule should apply to every table")
	}

	malformed := DataValidationRule{TargetTables: []byte(`{oops`)}
	if malformed.AppliesToTable("controls") {
		t.Error("malformed target list should apply nowhere")
	}
}
