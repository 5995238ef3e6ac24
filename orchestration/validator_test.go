package orchestration

import (
	"encoding/json"
	"testing"

	"bitbucket.org/mmdatafocus/grc_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the rule
// evaluation semantics against in-memory rules; active-rule loading and
// caching are exercised by integration tests.

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func makeRule(t *testing.T, name string, ruleType models.RuleType, logic map[string]interface{}) models.DataValidationRule {
	t.Helper()
	return models.DataValidationRule{
		RuleName:        name,
		RuleType:        ruleType,
		TargetTables:    mustJSON(t, []string{"incident_logs"}),
		ValidationLogic: mustJSON(t, logic),
		ErrorMessage:    name + " failed",
		Severity:        models.RuleSeverityMedium,
	}
}

func TestEvaluateRecord_NoRules_IsValid(t *testing.T) {
	out := EvaluateRecord(map[string]interface{}{"a": 1}, nil)
	if !out.IsValid {
		t.Fatal("expected valid outcome with no rules")
	}
	if len(out.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(out.Violations))
	}
}

func TestEvaluateRecord_IsValidMatchesViolations(t *testing.T) {
	rules := []models.DataValidationRule{
		makeRule(t, "sev-format", models.RuleTypeFormat, map[string]interface{}{"severity": "^(low|high)$"}),
		makeRule(t, "score-range", models.RuleTypeRange, map[string]interface{}{"score": map[string]interface{}{"min": 0, "max": 100}}),
	}

	out := EvaluateRecord(map[string]interface{}{"severity": "bogus", "score": 150}, rules)
	if out.IsValid {
		t.Fatal("expected invalid outcome")
	}
	if len(out.Violations) != 2 {
		t.Fatalf("expected both rules to be reported, got %d", len(out.Violations))
	}
	if out.Violations[0].RuleName != "sev-format" || out.Violations[1].RuleName != "score-range" {
		t.Fatalf("violations out of rule order: %+v", out.Violations)
	}
}

func TestFormatRule_AbsentFieldPasses(t *testing.T) {
	rule := makeRule(t, "sev-format", models.RuleTypeFormat, map[string]interface{}{"severity": "^(low|high)$"})
	out := EvaluateRecord(map[string]interface{}{"other": "x"}, []models.DataValidationRule{rule})
	if !out.IsValid {
		t.Fatal("absent field should not violate a format rule")
	}
}

func TestFormatRule_NonStringPatternIgnored(t *testing.T) {
	rule := makeRule(t, "bad-pattern", models.RuleTypeFormat, map[string]interface{}{"severity": 42})
	out := EvaluateRecord(map[string]interface{}{"severity": "whatever"}, []models.DataValidationRule{rule})
	if !out.IsValid {
		t.Fatal("non-string pattern should be skipped, not violated")
	}
}

func TestFormatRule_StringifiesNonStringValues(t *testing.T) {
	rule := makeRule(t, "code-format", models.RuleTypeFormat, map[string]interface{}{"code": "^[0-9]+$"})
	out := EvaluateRecord(map[string]interface{}{"code": 1234}, []models.DataValidationRule{rule})
	if !out.IsValid {
		t.Fatal("numeric value should be stringified before matching")
	}
}

func TestFormatRule_InvalidRegexViolates(t *testing.T) {
	rule := makeRule(t, "broken-regex", models.RuleTypeFormat, map[string]interface{}{"severity": "([unclosed"})
	out := EvaluateRecord(map[string]interface{}{"severity": "low"}, []models.DataValidationRule{rule})
	if out.IsValid {
		t.Fatal("uncompilable pattern should violate the rule")
	}
}

func TestRangeRule_InclusiveBounds(t *testing.T) {
	rule := makeRule(t, "score-range", models.RuleTypeRange, map[string]interface{}{
		"score": map[string]interface{}{"min": 0, "max": 100},
	})

	for _, v := range []interface{}{0, 100, 50, "100"} {
		out := EvaluateRecord(map[string]interface{}{"score": v}, []models.DataValidationRule{rule})
		if !out.IsValid {
			t.Fatalf("value %v should satisfy inclusive bounds", v)
		}
	}
	for _, v := range []interface{}{-1, 101, "100.5"} {
		out := EvaluateRecord(map[string]interface{}{"score": v}, []models.DataValidationRule{rule})
		if out.IsValid {
			t.Fatalf("value %v should violate bounds", v)
		}
	}
}

func TestRangeRule_NonNumericValueViolates(t *testing.T) {
	rule := makeRule(t, "score-range", models.RuleTypeRange, map[string]interface{}{
		"score": map[string]interface{}{"min": 0},
	})
	out := EvaluateRecord(map[string]interface{}{"score": "not-a-number"}, []models.DataValidationRule{rule})
	if out.IsValid {
		t.Fatal("non-numeric value should violate a range rule")
	}
}

func TestRangeRule_AbsentFieldPasses(t *testing.T) {
	rule := makeRule(t, "score-range", models.RuleTypeRange, map[string]interface{}{
		"score": map[string]interface{}{"min": 0},
	})
	out := EvaluateRecord(map[string]interface{}{}, []models.DataValidationRule{rule})
	if !out.IsValid {
		t.Fatal("absent field should not violate a range rule")
	}
}

func TestDependencyRule_ConditionTruthyRequiresDependents(t *testing.T) {
	rule := makeRule(t, "closure-deps", models.RuleTypeDependency, map[string]interface{}{
		"is_closed": []interface{}{"resolution_summary"},
	})

	out := EvaluateRecord(map[string]interface{}{"is_closed": true}, []models.DataValidationRule{rule})
	if out.IsValid {
		t.Fatal("truthy condition with missing dependent should violate")
	}

	out = EvaluateRecord(map[string]interface{}{
		"is_closed":          true,
		"resolution_summary": "root cause fixed",
	}, []models.DataValidationRule{rule})
	if !out.IsValid {
		t.Fatal("truthy condition with truthy dependent should pass")
	}
}

func TestDependencyRule_FalsyConditionPasses(t *testing.T) {
	rule := makeRule(t, "closure-deps", models.RuleTypeDependency, map[string]interface{}{
		"is_closed": []interface{}{"resolution_summary"},
	})

	for _, cond := range []interface{}{false, nil, 0, ""} {
		out := EvaluateRecord(map[string]interface{}{"is_closed": cond}, []models.DataValidationRule{rule})
		if !out.IsValid {
			t.Fatalf("falsy condition %v should skip the dependency check", cond)
		}
	}
}

func TestBusinessLogicAndCrossModuleRulesAlwaysPass(t *testing.T) {
	rules := []models.DataValidationRule{
		makeRule(t, "cadence", models.RuleTypeBusinessLogic, map[string]interface{}{"description": "x"}),
		makeRule(t, "xmod", models.RuleTypeCrossModule, map[string]interface{}{"description": "y"}),
	}
	out := EvaluateRecord(map[string]interface{}{}, rules)
	if !out.IsValid {
		t.Fatal("business logic and cross module rules carry no enforcement")
	}
}

func TestEvaluateRecord_MalformedLogicNeverPanics(t *testing.T) {
	// A rule row with an unparseable payload decodes to empty logic and
	// passes; the remaining rules still run.
	broken := models.DataValidationRule{
		RuleName:        "broken-json",
		RuleType:        models.RuleTypeFormat,
		ValidationLogic: []byte("{not json"),
		ErrorMessage:    "broken",
		Severity:        models.RuleSeverityLow,
	}
	failing := makeRule(t, "sev-format", models.RuleTypeFormat, map[string]interface{}{"severity": "^low$"})

	out := EvaluateRecord(map[string]interface{}{"severity": "HIGH"}, []models.DataValidationRule{broken, failing})
	if len(out.Violations) != 1 {
		t.Fatalf("expected only the failing rule to be reported, got %+v", out.Violations)
	}
	if out.Violations[0].RuleName != "sev-format" {
		t.Fatalf("unexpected violation: %+v", out.Violations[0])
	}
}
