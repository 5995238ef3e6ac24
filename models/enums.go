package models

// Operation kinds recorded on lineage rows.
type OperationType string

const (
	OperationTypeCreate OperationType = "create"
	OperationTypeUpdate OperationType = "update"
	OperationTypeDelete OperationType = "delete"
	OperationTypeSync   OperationType = "sync"
)

// Lineage conflict lifecycle.
type LineageSyncStatus string

const (
	LineageSyncStatusPending  LineageSyncStatus = "pending"
	LineageSyncStatusSuccess  LineageSyncStatus = "success"
	LineageSyncStatusFailed   LineageSyncStatus = "failed"
	LineageSyncStatusConflict LineageSyncStatus = "conflict"
)

// Sync event state machine. pending -> processing -> completed|failed|partial.
type SyncEventStatus string

const (
	SyncEventStatusPending    SyncEventStatus = "pending"
	SyncEventStatusProcessing SyncEventStatus = "processing"
	SyncEventStatusCompleted  SyncEventStatus = "completed"
	SyncEventStatusFailed     SyncEventStatus = "failed"
	SyncEventStatusPartial    SyncEventStatus = "partial"
)

func (s SyncEventStatus) Terminal() bool {
	return s == SyncEventStatusCompleted || s == SyncEventStatusFailed || s == SyncEventStatusPartial
}

// Validation rule taxonomy.
type RuleType string

const (
	RuleTypeFormat        RuleType = "format"
	RuleTypeRange         RuleType = "range"
	RuleTypeDependency    RuleType = "dependency"
	RuleTypeBusinessLogic RuleType = "business_logic"
	RuleTypeCrossModule   RuleType = "cross_module"
)

type RuleSeverity string

const (
	RuleSeverityLow      RuleSeverity = "low"
	RuleSeverityMedium   RuleSeverity = "medium"
	RuleSeverityHigh     RuleSeverity = "high"
	RuleSeverityCritical RuleSeverity = "critical"
)

// WildcardTable in a rule's target_tables list matches every table.
const WildcardTable = "*"

// Change-feed event kinds, as delivered by the backend change notifications.
type ChangeEventType string

const (
	ChangeEventInsert ChangeEventType = "INSERT"
	ChangeEventUpdate ChangeEventType = "UPDATE"
	ChangeEventDelete ChangeEventType = "DELETE"
)

func (e ChangeEventType) Operation() OperationType {
	switch e {
	case ChangeEventInsert:
		return OperationTypeCreate
	case ChangeEventUpdate:
		return OperationTypeUpdate
	case ChangeEventDelete:
		return OperationTypeDelete
	default:
		return OperationTypeSync
	}
}

// Outbox publishing lifecycle for change-capture records.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const DefaultMaxRetries = 3

// SyncSourceManual marks administrator-initiated propagation.
const SyncSourceManual = "manual"

// SyncSourceUnknown is used when a change arrives for a table with no module mapping.
const SyncSourceUnknown = "unknown"
