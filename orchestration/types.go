package orchestration

import (
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/models"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// ChangeNotification is one decoded change-feed delivery.
type ChangeNotification struct {
	OrgId         string
	TableName     string
	RecordId      string
	EventType     models.ChangeEventType
	NewRecord     map[string]interface{}
	OldRecord     map[string]interface{}
	OccurredAt    time.Time
	CorrelationId string
}

// DecodeChangeNotification converts a wire envelope into a notification.
func DecodeChangeNotification(msg config.ChangeFeedMessage) ChangeNotification {
	return ChangeNotification{
		OrgId:         msg.OrgId,
		TableName:     msg.TableName,
		RecordId:      msg.RecordId,
		EventType:     models.ChangeEventType(msg.EventType),
		NewRecord:     decodeRecord(msg.NewObj),
		OldRecord:     decodeRecord(msg.OldObj),
		OccurredAt:    msg.OccurredAt,
		CorrelationId: msg.CorrelationId,
	}
}

func decodeRecord(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	return utils.SafeJSONObject(raw)
}

// FanoutResult reports what happened to each step of one change's handling.
// Step failures never abort sibling steps; they are collected here so
// callers (and tests) can observe them instead of scraping logs.
type FanoutResult struct {
	Dropped      bool
	SyncEvent    *models.SyncEvent
	SyncEventErr error
	QualityErr   error
	LineageErr   error
}

// Failed reports whether any attempted step failed.
func (r FanoutResult) Failed() bool {
	return r.SyncEventErr != nil || r.QualityErr != nil || r.LineageErr != nil
}

type TriggerSyncRequest struct {
	EntityType    string   `json:"entityType" binding:"required,grctable"`
	EntityId      string   `json:"entityId" binding:"required"`
	TargetModules []string `json:"targetModules" binding:"required,min=1"`
}

type ResolveConflictRequest struct {
	ResolverId string                 `json:"resolverId" binding:"required"`
	Resolution map[string]interface{} `json:"resolution" binding:"required"`
}

type TokenRequest struct {
	ClientId     string `json:"clientId" binding:"required"`
	ClientSecret string `json:"clientSecret" binding:"required"`
}

// ManualSyncPayload is the event_data stored for administrator-initiated
// propagation.
type ManualSyncPayload struct {
	Operation   models.OperationType `json:"operation"`
	TriggeredAt time.Time            `json:"triggered_at"`
}

func (p ManualSyncPayload) toMap() map[string]interface{} {
	b, _ := json.Marshal(p)
	return utils.SafeJSONObject(b)
}
