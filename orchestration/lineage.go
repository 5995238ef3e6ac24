package orchestration

import (
	"encoding/json"

	"bitbucket.org/mmdatafocus/grc_backend/models"
)

// lineageExcludedFields are bookkeeping columns never captured in the
// field-changes payload.
var lineageExcludedFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// BuildLineage snapshots the record's current field values as a
// self-referential lineage row. This is a snapshot of current state, not a
// diff against the previous state.
func BuildLineage(orgId string, tableName string, recordId string, record map[string]interface{}, operation models.OperationType) *models.DataLineage {
	changes := make(map[string]interface{}, len(record))
	for field, value := range record {
		if lineageExcludedFields[field] {
			continue
		}
		changes[field] = value
	}
	changesJSON, _ := json.Marshal(changes)

	return &models.DataLineage{
		OrgId:          orgId,
		SourceTable:    tableName,
		SourceRecordId: recordId,
		TargetTable:    tableName,
		TargetRecordId: recordId,
		OperationType:  operation,
		FieldChanges:   changesJSON,
		SyncStatus:     models.LineageSyncStatusPending,
	}
}
