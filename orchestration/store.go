package orchestration

import (
	"context"

	"bitbucket.org/mmdatafocus/grc_backend/models"
)

// Store is the persistence surface the orchestrator drives per change.
// The production implementation writes through the models package; tests
// substitute fakes.
type Store interface {
	CreateLineage(ctx context.Context, lineage *models.DataLineage) (*models.DataLineage, error)
	CreateQualityMetrics(ctx context.Context, metrics *models.DataQualityMetrics) (*models.DataQualityMetrics, error)
	CreateSyncEvent(ctx context.Context, input *models.NewSyncEvent) (*models.SyncEvent, error)
	ActiveRulesForTable(ctx context.Context, orgId string, tableName string) ([]models.DataValidationRule, error)
}

type dbStore struct{}

// NewStore returns the database-backed store.
func NewStore() Store {
	return dbStore{}
}

func (dbStore) CreateLineage(ctx context.Context, lineage *models.DataLineage) (*models.DataLineage, error) {
	return models.CreateDataLineage(ctx, lineage)
}

func (dbStore) CreateQualityMetrics(ctx context.Context, metrics *models.DataQualityMetrics) (*models.DataQualityMetrics, error) {
	return models.CreateDataQualityMetrics(ctx, metrics)
}

func (dbStore) CreateSyncEvent(ctx context.Context, input *models.NewSyncEvent) (*models.SyncEvent, error) {
	return models.CreateSyncEvent(ctx, input)
}

func (dbStore) ActiveRulesForTable(ctx context.Context, orgId string, tableName string) ([]models.DataValidationRule, error) {
	return models.GetActiveRulesForTable(ctx, orgId, tableName)
}
