package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeOutboxRecord implements a transactional outbox for watched-table
// mutations: the row is written inside the caller's DB transaction but is NOT
// published to Pub/Sub there. Publishing is performed asynchronously by the
// change feed dispatcher after commit.
type ChangeOutboxRecord struct {
	ID               int        `gorm:"primary_key" json:"id"`
	OrgId            string     `gorm:"index;size:64;not null" json:"org_id"`
	TableName        string     `gorm:"index;size:100;not null" json:"table_name"`
	RecordId         string     `gorm:"size:128;not null" json:"record_id"`
	EventType        string     `gorm:"size:20;not null" json:"event_type"`
	NewObj           []byte     `gorm:"type:json" json:"new_obj"`
	OldObj           []byte     `gorm:"type:json" json:"old_obj"`
	OccurredAt       time.Time  `json:"occurred_at"`
	IsProcessed      bool       `gorm:"index" json:"is_processed"`
	PublishStatus    string     `gorm:"index;size:20;not null" json:"publish_status"`
	PublishAttempts  int        `json:"publish_attempts"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	NextAttemptAt    *time.Time `gorm:"index" json:"next_attempt_at"`
	LockedAt         *time.Time `json:"locked_at"`
	LockedBy         *string    `gorm:"size:64" json:"locked_by"`
	PublishedAt      *time.Time `json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:64" json:"pub_sub_message_id"`
	CorrelationId    string     `gorm:"size:64" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordChange captures one mutation of a watched table into the outbox,
// inside the mutation's own transaction.
func RecordChange(tx *gorm.DB, orgId string, tableName string, recordId string, eventType ChangeEventType, newObj interface{}, oldObj interface{}) error {
	var newJSON, oldJSON []byte
	var err error

	if eventType == ChangeEventInsert || eventType == ChangeEventUpdate {
		newJSON, err = json.Marshal(newObj)
		if err != nil {
			return err
		}
	}
	if eventType == ChangeEventUpdate || eventType == ChangeEventDelete {
		oldJSON, err = json.Marshal(oldObj)
		if err != nil {
			return err
		}
	}

	record := ChangeOutboxRecord{
		OrgId:         orgId,
		TableName:     tableName,
		RecordId:      recordId,
		EventType:     string(eventType),
		NewObj:        newJSON,
		OldObj:        oldJSON,
		OccurredAt:    time.Now(),
		IsProcessed:   false,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(tx.Statement.Context),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ConvertToChangeFeedMessage builds the wire envelope for one outbox record.
func ConvertToChangeFeedMessage(rec ChangeOutboxRecord) config.ChangeFeedMessage {
	return config.ChangeFeedMessage{
		ID:            rec.ID,
		OrgId:         rec.OrgId,
		TableName:     rec.TableName,
		RecordId:      rec.RecordId,
		EventType:     rec.EventType,
		OccurredAt:    rec.OccurredAt,
		OldObj:        rec.OldObj,
		NewObj:        rec.NewObj,
		CorrelationId: rec.CorrelationId,
	}
}
