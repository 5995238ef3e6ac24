package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/shopspring/decimal"
)

// SyncEvent is a unit of cross-module propagation work. This layer is a
// passive ledger: it persists events and updates their status, while the
// sync event worker drives pending -> processing -> terminal transitions
// and enforces the retry budget.
type SyncEvent struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrgId         string          `gorm:"index;size:64;not null" json:"org_id"`
	EventType     string          `gorm:"index;size:120;not null" json:"event_type"`
	SourceModule  string          `gorm:"size:60;not null" json:"source_module"`
	TargetModules []byte          `gorm:"type:json" json:"target_modules"`
	EntityType    string          `gorm:"size:100" json:"entity_type"`
	EntityId      string          `gorm:"size:128" json:"entity_id"`
	EventData     []byte          `gorm:"type:json" json:"event_data"`
	SyncStatus    SyncEventStatus `gorm:"index;size:20;not null" json:"sync_status"`
	RetryCount    int             `json:"retry_count"`
	MaxRetries    int             `json:"max_retries"`
	ErrorDetails  []byte          `gorm:"type:json" json:"error_details"`
	NextAttemptAt *time.Time      `gorm:"index" json:"next_attempt_at"`
	ProcessedAt   *time.Time      `json:"processed_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e SyncEvent) GetOrgId() string {
	return e.OrgId
}

func (e SyncEvent) TargetModuleList() []string {
	return utils.SafeJSONStringList(e.TargetModules)
}

type NewSyncEvent struct {
	OrgId         string
	EventType     string
	SourceModule  string
	TargetModules []string
	EntityType    string
	EntityId      string
	EventData     map[string]interface{}
}

// CreateSyncEvent persists a new event in pending state with retry_count 0.
func CreateSyncEvent(ctx context.Context, input *NewSyncEvent) (*SyncEvent, error) {
	event, err := buildSyncEvent(input)
	if err != nil {
		return nil, err
	}
	db := config.GetDB().WithContext(ctx)
	if err := db.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// buildSyncEvent assembles the row CreateSyncEvent persists. Every new event
// starts pending with a zero retry counter.
func buildSyncEvent(input *NewSyncEvent) (*SyncEvent, error) {
	if input.OrgId == "" {
		return nil, errors.New("org id is required")
	}

	targetsJSON, err := json.Marshal(input.TargetModules)
	if err != nil {
		return nil, err
	}
	dataJSON, err := json.Marshal(input.EventData)
	if err != nil {
		return nil, err
	}

	return &SyncEvent{
		OrgId:         input.OrgId,
		EventType:     input.EventType,
		SourceModule:  input.SourceModule,
		TargetModules: targetsJSON,
		EntityType:    input.EntityType,
		EntityId:      input.EntityId,
		EventData:     dataJSON,
		SyncStatus:    SyncEventStatusPending,
		RetryCount:    0,
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// UpdateSyncEventStatus sets the status; transitioning to completed stamps a
// processed timestamp, and supplied error details are merged into the stored
// error payload.
func UpdateSyncEventStatus(ctx context.Context, orgId string, eventId int, status SyncEventStatus, errorDetails map[string]interface{}) (*SyncEvent, error) {
	db := config.GetDB().WithContext(ctx)

	var event SyncEvent
	if err := db.Where("id = ? AND org_id = ?", eventId, orgId).Take(&event).Error; err != nil {
		return nil, err
	}

	updates, err := syncEventStatusUpdates(&event, status, errorDetails, time.Now())
	if err != nil {
		return nil, err
	}
	if err := db.Model(&event).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// syncEventStatusUpdates computes the columns a status transition writes.
// Only completed stamps processed_at; supplied error details are merged over
// the event's stored payload.
func syncEventStatusUpdates(event *SyncEvent, status SyncEventStatus, errorDetails map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	updates := map[string]interface{}{
		"sync_status": status,
	}
	if status == SyncEventStatusCompleted {
		updates["processed_at"] = &now
	}
	if len(errorDetails) > 0 {
		merged := utils.SafeJSONObject(event.ErrorDetails)
		for k, v := range errorDetails {
			merged[k] = v
		}
		mergedJSON, err := json.Marshal(merged)
		if err != nil {
			return nil, err
		}
		updates["error_details"] = mergedJSON
	}
	return updates, nil
}

// GetSyncEvents returns events ordered newest-first, optionally filtered by status.
func GetSyncEvents(ctx context.Context, orgId string, status SyncEventStatus) ([]SyncEvent, error) {
	db := config.GetDB().WithContext(ctx)
	var rows []SyncEvent
	q := db.Where("org_id = ?", orgId)
	if status != "" {
		q = q.Where("sync_status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncStatusSummary carries the aggregate counts surfaced to dashboards.
type SyncStatusSummary struct {
	TotalEvents      int64           `json:"totalEvents"`
	PendingEvents    int64           `json:"pendingEvents"`
	ProcessingEvents int64           `json:"processingEvents"`
	CompletedEvents  int64           `json:"completedEvents"`
	FailedEvents     int64           `json:"failedEvents"`
	PartialEvents    int64           `json:"partialEvents"`
	SuccessRate      decimal.Decimal `json:"successRate"`
}

func GetSyncStatusSummary(ctx context.Context, orgId string) (*SyncStatusSummary, error) {
	db := config.GetDB().WithContext(ctx)

	type statusCount struct {
		SyncStatus SyncEventStatus
		Total      int64
	}
	var counts []statusCount
	err := db.Model(&SyncEvent{}).
		Select("sync_status, COUNT(*) AS total").
		Where("org_id = ?", orgId).
		Group("sync_status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	summary := SyncStatusSummary{SuccessRate: decimal.Zero}
	for _, c := range counts {
		summary.TotalEvents += c.Total
		switch c.SyncStatus {
		case SyncEventStatusPending:
			summary.PendingEvents = c.Total
		case SyncEventStatusProcessing:
			summary.ProcessingEvents = c.Total
		case SyncEventStatusCompleted:
			summary.CompletedEvents = c.Total
		case SyncEventStatusFailed:
			summary.FailedEvents = c.Total
		case SyncEventStatusPartial:
			summary.PartialEvents = c.Total
		}
	}
	if summary.TotalEvents > 0 {
		summary.SuccessRate = decimal.NewFromInt(summary.CompletedEvents).
			Div(decimal.NewFromInt(summary.TotalEvents)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return &summary, nil
}
