package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
)

// Seeds a baseline validation rule set for an organization. Existing rules
// with the same name are left untouched.
func main() {
	orgID := flag.String("org-id", "", "Organization id to seed rules for (required)")
	flag.Parse()

	if strings.TrimSpace(*orgID) == "" {
		fmt.Fprintln(os.Stderr, "-org-id is required")
		os.Exit(1)
	}
	org := strings.TrimSpace(*orgID)

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	existing, err := models.GetDataValidationRules(ctx, org)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list rules: %v\n", err)
		os.Exit(1)
	}
	have := map[string]bool{}
	for _, r := range existing {
		have[r.RuleName] = true
	}

	created := 0
	for _, input := range baselineRules() {
		if have[input.RuleName] {
			continue
		}
		if _, err := models.CreateDataValidationRule(ctx, org, "seed-rules", &input); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create rule %q: %v\n", input.RuleName, err)
			os.Exit(1)
		}
		created++
	}

	fmt.Printf("seeded %d rules for organization %s (%d already present)\n", created, org, len(existing))
}

func baselineRules() []models.NewDataValidationRule {
	return []models.NewDataValidationRule{
		{
			RuleName:     "incident-severity-format",
			RuleType:     models.RuleTypeFormat,
			TargetTables: []string{"incident_logs"},
			TargetFields: []string{"severity"},
			ValidationLogic: map[string]interface{}{
				"severity": "^(low|medium|high|critical)$",
			},
			ErrorMessage: "severity must be one of low, medium, high, critical",
			Severity:     models.RuleSeverityHigh,
		},
		{
			RuleName:     "control-effectiveness-format",
			RuleType:     models.RuleTypeFormat,
			TargetTables: []string{"controls"},
			TargetFields: []string{"effectiveness"},
			ValidationLogic: map[string]interface{}{
				"effectiveness": "^(effective|partially_effective|ineffective)$",
			},
			ErrorMessage: "effectiveness must be effective, partially_effective or ineffective",
			Severity:     models.RuleSeverityMedium,
		},
		{
			RuleName:     "kri-threshold-range",
			RuleType:     models.RuleTypeRange,
			TargetTables: []string{"kri_definitions"},
			TargetFields: []string{"threshold_warning", "threshold_critical"},
			ValidationLogic: map[string]interface{}{
				"threshold_warning":  map[string]interface{}{"min": 0},
				"threshold_critical": map[string]interface{}{"min": 0},
			},
			ErrorMessage: "thresholds must be non-negative",
			Severity:     models.RuleSeverityMedium,
		},
		{
			RuleName:     "resolved-incident-requires-root-cause",
			RuleType:     models.RuleTypeDependency,
			TargetTables: []string{"incident_logs"},
			ValidationLogic: map[string]interface{}{
				"resolved_at": []interface{}{"root_cause"},
			},
			ErrorMessage: "resolved incidents require a root cause",
			Severity:     models.RuleSeverityCritical,
		},
		{
			RuleName:     "policy-review-cadence",
			RuleType:     models.RuleTypeBusinessLogic,
			TargetTables: []string{models.WildcardTable},
			ValidationLogic: map[string]interface{}{
				"description": "records should be reviewed within their declared cadence",
			},
			ErrorMessage: "record is past its review cadence",
			Severity:     models.RuleSeverityLow,
		},
	}
}
