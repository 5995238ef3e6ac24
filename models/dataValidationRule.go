package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"gorm.io/gorm"
)

// DataValidationRule is a declarative check definition. Rules are created and
// edited by administrators and are read-only to the evaluator; they are
// soft-disabled via is_active rather than deleted.
type DataValidationRule struct {
	ID              int          `gorm:"primary_key" json:"id"`
	OrgId           string       `gorm:"index;size:64;not null" json:"org_id"`
	RuleName        string       `gorm:"size:150;not null" json:"rule_name"`
	RuleType        RuleType     `gorm:"size:30;not null" json:"rule_type"`
	TargetTables    []byte       `gorm:"type:json" json:"target_tables"`
	TargetFields    []byte       `gorm:"type:json" json:"target_fields"`
	ValidationLogic []byte       `gorm:"type:json" json:"validation_logic"`
	ErrorMessage    string       `gorm:"size:500" json:"error_message"`
	Severity        RuleSeverity `gorm:"size:20;not null" json:"severity"`
	IsActive        *bool        `gorm:"default:true" json:"is_active"`
	CreatedBy       string       `gorm:"size:128" json:"created_by"`
	CreatedAt       time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r DataValidationRule) GetOrgId() string {
	return r.OrgId
}

func (r DataValidationRule) TargetTableList() []string {
	return utils.SafeJSONStringList(r.TargetTables)
}

func (r DataValidationRule) TargetFieldList() []string {
	return utils.SafeJSONStringList(r.TargetFields)
}

// Logic decodes the validation_logic payload. The shape depends on rule type;
// readers must treat it defensively.
func (r DataValidationRule) Logic() map[string]interface{} {
	return utils.SafeJSONObject(r.ValidationLogic)
}

// AppliesToTable reports whether the rule targets the table, honoring the
// "*" wildcard.
func (r DataValidationRule) AppliesToTable(tableName string) bool {
	tables := r.TargetTableList()
	return utils.StrSliceContains(tables, tableName) || utils.StrSliceContains(tables, WildcardTable)
}

type NewDataValidationRule struct {
	RuleName        string                 `json:"ruleName" binding:"required"`
	RuleType        RuleType               `json:"ruleType" binding:"required,oneof=format range dependency business_logic cross_module"`
	TargetTables    []string               `json:"targetTables" binding:"required,min=1,dive,grctable"`
	TargetFields    []string               `json:"targetFields"`
	ValidationLogic map[string]interface{} `json:"validationLogic"`
	ErrorMessage    string                 `json:"errorMessage" binding:"required"`
	Severity        RuleSeverity           `json:"severity" binding:"required,oneof=low medium high critical"`
}

func CreateDataValidationRule(ctx context.Context, orgId string, createdBy string, input *NewDataValidationRule) (*DataValidationRule, error) {
	if orgId == "" {
		return nil, errors.New("org id is required")
	}

	tablesJSON, err := json.Marshal(input.TargetTables)
	if err != nil {
		return nil, err
	}
	fieldsJSON, err := json.Marshal(input.TargetFields)
	if err != nil {
		return nil, err
	}
	logicJSON, err := json.Marshal(input.ValidationLogic)
	if err != nil {
		return nil, err
	}

	rule := DataValidationRule{
		OrgId:           orgId,
		RuleName:        input.RuleName,
		RuleType:        input.RuleType,
		TargetTables:    tablesJSON,
		TargetFields:    fieldsJSON,
		ValidationLogic: logicJSON,
		ErrorMessage:    input.ErrorMessage,
		Severity:        input.Severity,
		IsActive:        utils.NewTrue(),
		CreatedBy:       createdBy,
	}
	db := config.GetDB().WithContext(ctx)
	if err := db.Create(&rule).Error; err != nil {
		return nil, err
	}

	// Rule admin writes invalidate the org's cached rule sets.
	_ = utils.ClearRuleCache(orgId)
	return &rule, nil
}

type UpdateDataValidationRule struct {
	RuleName        *string                `json:"ruleName"`
	TargetTables    []string               `json:"targetTables"`
	TargetFields    []string               `json:"targetFields"`
	ValidationLogic map[string]interface{} `json:"validationLogic"`
	ErrorMessage    *string                `json:"errorMessage"`
	Severity        *RuleSeverity          `json:"severity"`
	IsActive        *bool                  `json:"isActive"`
}

func PatchDataValidationRule(ctx context.Context, orgId string, ruleId int, input *UpdateDataValidationRule) (*DataValidationRule, error) {
	db := config.GetDB().WithContext(ctx)

	var rule DataValidationRule
	if err := db.Where("id = ? AND org_id = ?", ruleId, orgId).Take(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.RuleName != nil {
		updates["rule_name"] = *input.RuleName
	}
	if input.TargetTables != nil {
		tablesJSON, err := json.Marshal(input.TargetTables)
		if err != nil {
			return nil, err
		}
		updates["target_tables"] = tablesJSON
	}
	if input.TargetFields != nil {
		fieldsJSON, err := json.Marshal(input.TargetFields)
		if err != nil {
			return nil, err
		}
		updates["target_fields"] = fieldsJSON
	}
	if input.ValidationLogic != nil {
		logicJSON, err := json.Marshal(input.ValidationLogic)
		if err != nil {
			return nil, err
		}
		updates["validation_logic"] = logicJSON
	}
	if input.ErrorMessage != nil {
		updates["error_message"] = *input.ErrorMessage
	}
	if input.Severity != nil {
		updates["severity"] = *input.Severity
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := db.Model(&rule).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	_ = utils.ClearRuleCache(orgId)
	return &rule, nil
}

func GetDataValidationRules(ctx context.Context, orgId string) ([]DataValidationRule, error) {
	db := config.GetDB().WithContext(ctx)
	var rules []DataValidationRule
	if err := db.Where("org_id = ?", orgId).Order("created_at DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// GetActiveRulesForTable returns the active rules applicable to one table,
// wildcard rules included. Results are cached per (org, table).
func GetActiveRulesForTable(ctx context.Context, orgId string, tableName string) ([]DataValidationRule, error) {
	var cached []DataValidationRule
	found, err := utils.GetRuleCache(orgId, tableName, &cached)
	if err == nil && found {
		return cached, nil
	}

	db := config.GetDB().WithContext(ctx)
	var rules []DataValidationRule
	if err := db.Where("org_id = ? AND is_active = ?", orgId, true).Find(&rules).Error; err != nil {
		return nil, err
	}

	applicable := make([]DataValidationRule, 0, len(rules))
	for _, r := range rules {
		if r.AppliesToTable(tableName) {
			applicable = append(applicable, r)
		}
	}

	// Cache failures are non-fatal; the DB remains the source of truth.
	_ = utils.StoreRuleCache(orgId, tableName, applicable)
	return applicable, nil
}

// GetDataValidationRuleByID returns nil when the rule does not exist.
func GetDataValidationRuleByID(ctx context.Context, orgId string, id int) (*DataValidationRule, error) {
	db := config.GetDB().WithContext(ctx)
	var rule DataValidationRule
	err := db.Where("id = ? AND org_id = ?", id, orgId).Take(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}
