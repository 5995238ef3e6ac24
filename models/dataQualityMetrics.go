package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
)

// DataQualityMetrics is a quality snapshot for one record at one point in
// time. Rows are insert-only; re-validating a record inserts a new snapshot.
type DataQualityMetrics struct {
	ID                int       `gorm:"primary_key" json:"id"`
	OrgId             string    `gorm:"index;size:64;not null" json:"org_id"`
	TableName         string    `gorm:"index;size:100;not null" json:"table_name"`
	RecordId          string    `gorm:"index;size:128;not null" json:"record_id"`
	CompletenessScore int       `json:"completeness_score"`
	AccuracyScore     int       `json:"accuracy_score"`
	ConsistencyScore  int       `json:"consistency_score"`
	ValidityScore     int       `json:"validity_score"`
	QualityScore      int       `json:"quality_score"`
	Issues            []byte    `gorm:"type:json" json:"issues"`
	ValidationResults []byte    `gorm:"type:json" json:"validation_results"`
	LastValidatedAt   time.Time `json:"last_validated_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m DataQualityMetrics) GetOrgId() string {
	return m.OrgId
}

func CreateDataQualityMetrics(ctx context.Context, metrics *DataQualityMetrics) (*DataQualityMetrics, error) {
	if metrics.OrgId == "" {
		return nil, errors.New("org id is required")
	}
	if metrics.LastValidatedAt.IsZero() {
		metrics.LastValidatedAt = time.Now()
	}
	db := config.GetDB().WithContext(ctx)
	if err := db.Create(metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}

// GetDataQualityMetrics returns snapshots for the org, newest first,
// optionally filtered by table and record.
func GetDataQualityMetrics(ctx context.Context, orgId string, tableName string, recordId string) ([]DataQualityMetrics, error) {
	db := config.GetDB().WithContext(ctx)
	var rows []DataQualityMetrics
	q := db.Where("org_id = ?", orgId)
	if tableName != "" {
		q = q.Where("table_name = ?", tableName)
	}
	if recordId != "" {
		q = q.Where("record_id = ?", recordId)
	}
	if err := q.Order("last_validated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
