package orchestration

import (
	"encoding/json"
	"math"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// Fixed scoring constants. Accuracy/validity degrade to these values on any
// rule violation; consistency is a placeholder until real cross-module
// consistency checks exist.
const (
	accuracyScoreInvalid    = 80
	validityScoreInvalid    = 75
	consistencyScoreDefault = 95
	qualityPenaltyPerIssue  = 20
)

// CalculateCompleteness returns the share of non-empty fields, 0-100,
// rounded to the nearest integer. Pure function of the record's shape.
func CalculateCompleteness(record map[string]interface{}) int {
	if len(record) == 0 {
		return 0
	}
	populated := 0
	for _, v := range record {
		if !utils.IsEmptyValue(v) {
			populated++
		}
	}
	return int(math.Round(float64(populated) / float64(len(record)) * 100))
}

// BuildQualityMetrics evaluates the record against its table's active rules
// and assembles one insertable metrics snapshot.
func BuildQualityMetrics(orgId string, tableName string, recordId string, record map[string]interface{}, rules []models.DataValidationRule) *models.DataQualityMetrics {
	outcome := EvaluateRecord(record, rules)

	accuracy := 100
	validity := 100
	if !outcome.IsValid {
		accuracy = accuracyScoreInvalid
		validity = validityScoreInvalid
	}

	quality := 100 - qualityPenaltyPerIssue*len(outcome.Violations)
	if quality < 0 {
		quality = 0
	}

	issues := make([]string, 0, len(outcome.Violations))
	for _, v := range outcome.Violations {
		issues = append(issues, v.RuleName+": "+v.Message)
	}

	issuesJSON, _ := json.Marshal(issues)
	resultsJSON, _ := json.Marshal(outcome.Violations)

	return &models.DataQualityMetrics{
		OrgId:             orgId,
		TableName:         tableName,
		RecordId:          recordId,
		CompletenessScore: CalculateCompleteness(record),
		AccuracyScore:     accuracy,
		ConsistencyScore:  consistencyScoreDefault,
		ValidityScore:     validity,
		QualityScore:      quality,
		Issues:            issuesJSON,
		ValidationResults: resultsJSON,
		LastValidatedAt:   time.Now(),
	}
}
