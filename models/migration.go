package models

import (
	"log"

	"bitbucket.org/mmdatafocus/grc_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&DataLineage{}, &DataQualityMetrics{}, &SyncEvent{}, &DataValidationRule{},
		&ChangeOutboxRecord{},
		&IncidentLog{}, &GovernancePolicy{}, &Control{}, &KriDefinition{},
		&BusinessFunction{}, &ThirdPartyProfile{},
		&ApiCredential{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
