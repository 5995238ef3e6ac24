package orchestration

import (
	"testing"

	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

func TestCalculateCompleteness(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]interface{}
		want   int
	}{
		{"empty record", map[string]interface{}{}, 0},
		{"all populated", map[string]interface{}{"a": 1, "b": "x"}, 100},
		{"four of five", map[string]interface{}{"a": 1, "b": "x", "c": true, "d": 0, "e": ""}, 80},
		{"nil counts as empty", map[string]interface{}{"a": nil, "b": "x"}, 50},
		{"blank string counts as empty", map[string]interface{}{"a": "  ", "b": "x"}, 50},
		{"one of three rounds", map[string]interface{}{"a": "x", "b": nil, "c": ""}, 33},
	}

	for _, tc := range cases {
		if got := CalculateCompleteness(tc.record); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCalculateCompleteness_Idempotent(t *testing.T) {
	record := map[string]interface{}{"a": 1, "b": "", "c": "x"}
	first := CalculateCompleteness(record)
	second := CalculateCompleteness(record)
	if first != second {
		t.Fatalf("completeness changed between runs: %d then %d", first, second)
	}
}

func TestBuildQualityMetrics_CleanRecord(t *testing.T) {
	m := BuildQualityMetrics("org-1", "controls", "c-1", map[string]interface{}{"name": "SOX-1"}, nil)

	if m.AccuracyScore != 100 || m.ValidityScore != 100 {
		t.Fatalf("clean record should score 100/100, got %d/%d", m.AccuracyScore, m.ValidityScore)
	}
	if m.ConsistencyScore != 95 {
		t.Fatalf("consistency should be fixed at 95, got %d", m.ConsistencyScore)
	}
	if m.QualityScore != 100 {
		t.Fatalf("quality should be 100 with no violations, got %d", m.QualityScore)
	}
	if m.CompletenessScore != 100 {
		t.Fatalf("completeness should be 100, got %d", m.CompletenessScore)
	}
	if m.TableName != "controls" || m.RecordId != "c-1" || m.OrgId != "org-1" {
		t.Fatalf("metrics identity fields wrong: %+v", m)
	}
}

func TestBuildQualityMetrics_SingleViolation(t *testing.T) {
	rule := makeRule(t, "sev-format", models.RuleTypeFormat, map[string]interface{}{"severity": "^(low|high)$"})
	m := BuildQualityMetrics("org-1", "incident_logs", "i-1", map[string]interface{}{"severity": "bogus"}, []models.DataValidationRule{rule})

	if m.AccuracyScore != 80 {
		t.Fatalf("accuracy should degrade to 80, got %d", m.AccuracyScore)
	}
	if m.ValidityScore != 75 {
		t.Fatalf("validity should degrade to 75, got %d", m.ValidityScore)
	}
	if m.QualityScore != 80 {
		t.Fatalf("one violation should cost 20 points, got %d", m.QualityScore)
	}

	issues := utils.SafeJSONStringList(m.Issues)
	if len(issues) != 1 || issues[0] != "sev-format: sev-format failed" {
		t.Fatalf("unexpected issues payload: %v", issues)
	}
}

func TestBuildQualityMetrics_QualityFloorsAtZero(t *testing.T) {
	rules := make([]models.DataValidationRule, 0, 6)
	for _, name := range []string{"r1", "r2", "r3", "r4", "r5", "r6"} {
		rules = append(rules, makeRule(t, name, models.RuleTypeRange, map[string]interface{}{
			"score": map[string]interface{}{"min": 1000},
		}))
	}
	m := BuildQualityMetrics("org-1", "controls", "c-1", map[string]interface{}{"score": 1}, rules)
	if m.QualityScore != 0 {
		t.Fatalf("quality should floor at zero, got %d", m.QualityScore)
	}
}

func TestBuildLineage_ExcludesBookkeepingFields(t *testing.T) {
	record := map[string]interface{}{
		"id":         7,
		"created_at": "2026-01-01T00:00:00Z",
		"updated_at": "2026-01-02T00:00:00Z",
		"title":      "incident",
		"severity":   "high",
	}
	lineage := BuildLineage("org-1", "incident_logs", "i-7", record, models.OperationTypeCreate)

	changes := utils.SafeJSONObject(lineage.FieldChanges)
	for _, excluded := range []string{"id", "created_at", "updated_at"} {
		if _, ok := changes[excluded]; ok {
			t.Fatalf("field %q should be excluded from the snapshot", excluded)
		}
	}
	if changes["title"] != "incident" || changes["severity"] != "high" {
		t.Fatalf("domain fields missing from snapshot: %v", changes)
	}

	if lineage.SourceTable != lineage.TargetTable || lineage.SourceRecordId != lineage.TargetRecordId {
		t.Fatal("lineage snapshot should be self-referential")
	}
	if lineage.SyncStatus != models.LineageSyncStatusPending {
		t.Fatalf("new lineage should start pending, got %s", lineage.SyncStatus)
	}
}
