package orchestration

import (
	"fmt"
	"regexp"
	"strconv"

	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// RuleViolation is one failed check, in rule order.
type RuleViolation struct {
	RuleName string              `json:"ruleName"`
	Message  string              `json:"message"`
	Severity models.RuleSeverity `json:"severity"`
}

// ValidationOutcome is the verdict for one record against one rule set.
// IsValid holds exactly when Violations is empty.
type ValidationOutcome struct {
	IsValid    bool            `json:"isValid"`
	Violations []RuleViolation `json:"violations"`
}

// EvaluateRecord applies each rule to the record. A rule whose logic payload
// is malformed enough to panic counts as a violation of that rule; the
// remaining rules still run.
func EvaluateRecord(record map[string]interface{}, rules []models.DataValidationRule) ValidationOutcome {
	violations := make([]RuleViolation, 0)

	for _, rule := range rules {
		passed := evaluateRuleSafe(record, rule)
		if !passed {
			violations = append(violations, RuleViolation{
				RuleName: rule.RuleName,
				Message:  rule.ErrorMessage,
				Severity: rule.Severity,
			})
		}
	}

	return ValidationOutcome{
		IsValid:    len(violations) == 0,
		Violations: violations,
	}
}

func evaluateRuleSafe(record map[string]interface{}, rule models.DataValidationRule) (passed bool) {
	defer func() {
		if r := recover(); r != nil {
			// Malformed rule payloads fail the rule, never the evaluation.
			passed = false
		}
	}()
	return evaluateRule(record, rule)
}

func evaluateRule(record map[string]interface{}, rule models.DataValidationRule) bool {
	switch rule.RuleType {
	case models.RuleTypeFormat:
		return evaluateFormatRule(record, rule.Logic())
	case models.RuleTypeRange:
		return evaluateRangeRule(record, rule.Logic())
	case models.RuleTypeDependency:
		return evaluateDependencyRule(record, rule.Logic())
	case models.RuleTypeBusinessLogic, models.RuleTypeCrossModule:
		// Extension points: no enforcement is implemented, so these always
		// pass. Callers needing real business/cross-module checks must plug
		// their own logic in; passing here is NOT a validation guarantee.
		return true
	default:
		return true
	}
}

// format: each (field, pattern) pair requires the stringified present value
// to match the regex. Non-string patterns are ignored for that field.
func evaluateFormatRule(record map[string]interface{}, logic map[string]interface{}) bool {
	for field, rawPattern := range logic {
		pattern, ok := rawPattern.(string)
		if !ok {
			continue
		}
		value, present := record[field]
		if !present || value == nil {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		if !re.MatchString(stringify(value)) {
			return false
		}
	}
	return true
}

// range: each (field, {min,max}) pair parses the value as a float; a
// non-numeric value violates, and bounds are inclusive.
func evaluateRangeRule(record map[string]interface{}, logic map[string]interface{}) bool {
	for field, rawBounds := range logic {
		bounds, ok := rawBounds.(map[string]interface{})
		if !ok {
			continue
		}
		value, present := record[field]
		if !present || value == nil {
			continue
		}
		num, err := toFloat(value)
		if err != nil {
			return false
		}
		if minRaw, ok := bounds["min"]; ok {
			if minVal, err := toFloat(minRaw); err == nil && num < minVal {
				return false
			}
		}
		if maxRaw, ok := bounds["max"]; ok {
			if maxVal, err := toFloat(maxRaw); err == nil && num > maxVal {
				return false
			}
		}
	}
	return true
}

// dependency: when a condition field is truthy, every listed field must also
// be truthy on the record.
func evaluateDependencyRule(record map[string]interface{}, logic map[string]interface{}) bool {
	for conditionField, rawRequired := range logic {
		if !utils.IsTruthy(record[conditionField]) {
			continue
		}
		required, ok := rawRequired.([]interface{})
		if !ok {
			continue
		}
		for _, r := range required {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if !utils.IsTruthy(record[name]) {
				return false
			}
		}
	}
	return true
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return strconv.ParseFloat(fmt.Sprintf("%v", v), 64)
	}
}
