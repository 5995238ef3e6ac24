package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type BusinessFunction struct {
	ID               int       `gorm:"primary_key" json:"id"`
	OrgId            string    `gorm:"index;size:64;not null" json:"org_id"`
	FunctionName     string    `gorm:"size:255;not null" json:"function_name"`
	Criticality      string    `gorm:"size:30" json:"criticality"`
	RecoveryPriority int       `json:"recovery_priority"`
	OwnerName        string    `gorm:"size:128" json:"owner_name"`
	Description      string    `gorm:"type:text" json:"description"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b BusinessFunction) GetOrgId() string {
	return b.OrgId
}

func (b *BusinessFunction) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, b.OrgId, "business_functions", strconv.Itoa(b.ID), ChangeEventInsert, b, nil)
}

func (b *BusinessFunction) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, b.OrgId, "business_functions", strconv.Itoa(b.ID), ChangeEventUpdate, b, b)
}

func (b *BusinessFunction) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, b.OrgId, "business_functions", strconv.Itoa(b.ID), ChangeEventDelete, nil, b)
}
