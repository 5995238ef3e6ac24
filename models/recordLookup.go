package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/grc_backend/utils"
)

// ValidateWatchedRecord checks that a record exists in one of the watched
// tables before work is queued against it. Returns ErrorRecordNotFound when
// the row is missing and an error for a table this layer does not know.
func ValidateWatchedRecord(ctx context.Context, orgId string, tableName string, id string) error {
	switch tableName {
	case "incident_logs":
		return utils.ValidateResourceId[IncidentLog](ctx, orgId, id)
	case "governance_policies":
		return utils.ValidateResourceId[GovernancePolicy](ctx, orgId, id)
	case "controls":
		return utils.ValidateResourceId[Control](ctx, orgId, id)
	case "kri_definitions":
		return utils.ValidateResourceId[KriDefinition](ctx, orgId, id)
	case "business_functions":
		return utils.ValidateResourceId[BusinessFunction](ctx, orgId, id)
	case "third_party_profiles":
		return utils.ValidateResourceId[ThirdPartyProfile](ctx, orgId, id)
	}
	return fmt.Errorf("unsupported table %q", tableName)
}
