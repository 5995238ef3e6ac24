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

// DataLineage records one data mutation's provenance. Source and target may
// be identical (self-referential lineage) when no transformation occurred.
// Rows are created after every observed mutation and mutated only by
// conflict resolution; this layer never deletes them.
type DataLineage struct {
	ID                  int               `gorm:"primary_key" json:"id"`
	OrgId               string            `gorm:"index;size:64;not null" json:"org_id"`
	SourceTable         string            `gorm:"index;size:100;not null" json:"source_table"`
	SourceRecordId      string            `gorm:"size:128;not null" json:"source_record_id"`
	TargetTable         string            `gorm:"size:100;not null" json:"target_table"`
	TargetRecordId      string            `gorm:"size:128;not null" json:"target_record_id"`
	OperationType       OperationType     `gorm:"size:20;not null" json:"operation_type"`
	FieldChanges        []byte            `gorm:"type:json" json:"field_changes"`
	TransformationRules []byte            `gorm:"type:json" json:"transformation_rules"`
	SyncStatus          LineageSyncStatus `gorm:"index;size:20;not null" json:"sync_status"`
	ConflictData        []byte            `gorm:"type:json" json:"conflict_data"`
	ResolvedBy          string            `gorm:"size:128" json:"resolved_by"`
	ResolvedAt          *time.Time        `json:"resolved_at"`
	CreatedBy           string            `gorm:"size:128" json:"created_by"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l DataLineage) GetOrgId() string {
	return l.OrgId
}

func CreateDataLineage(ctx context.Context, lineage *DataLineage) (*DataLineage, error) {
	if lineage.OrgId == "" {
		return nil, errors.New("org id is required")
	}
	if lineage.SyncStatus == "" {
		lineage.SyncStatus = LineageSyncStatusPending
	}
	db := config.GetDB().WithContext(ctx)
	if err := db.Create(lineage).Error; err != nil {
		return nil, err
	}
	return lineage, nil
}

// GetDataLineage returns lineage rows for the org, newest first, optionally
// filtered by source table.
func GetDataLineage(ctx context.Context, orgId string, tableName string) ([]DataLineage, error) {
	db := config.GetDB().WithContext(ctx)
	var rows []DataLineage
	q := db.Where("org_id = ?", orgId)
	if tableName != "" {
		q = q.Where("source_table = ?", tableName)
	}
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func GetDataLineageByID(ctx context.Context, orgId string, id int) (*DataLineage, error) {
	db := config.GetDB().WithContext(ctx)
	var row DataLineage
	err := db.Where("id = ? AND org_id = ?", id, orgId).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ResolveDataConflict transitions a lineage row to success, stamping the
// resolver and storing the resolution payload as the conflict data. Conflict
// detection itself is external; rows arrive with status conflict.
func ResolveDataConflict(ctx context.Context, orgId string, lineageId int, resolverId string, resolution map[string]interface{}) (*DataLineage, error) {
	db := config.GetDB().WithContext(ctx)

	var row DataLineage
	if err := db.Where("id = ? AND org_id = ?", lineageId, orgId).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	resolutionJSON, err := json.Marshal(resolution)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"sync_status":   LineageSyncStatusSuccess,
		"conflict_data": resolutionJSON,
		"resolved_by":   resolverId,
		"resolved_at":   &now,
	}
	if err := db.Model(&row).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
