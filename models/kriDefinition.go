package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type KriDefinition struct {
	ID                int             `gorm:"primary_key" json:"id"`
	OrgId             string          `gorm:"index;size:64;not null" json:"org_id"`
	KriName           string          `gorm:"size:255;not null" json:"kri_name"`
	Category          string          `gorm:"size:60" json:"category"`
	Unit              string          `gorm:"size:30" json:"unit"`
	Frequency         string          `gorm:"size:30" json:"frequency"`
	ThresholdWarning  decimal.Decimal `gorm:"type:decimal(18,4)" json:"threshold_warning"`
	ThresholdCritical decimal.Decimal `gorm:"type:decimal(18,4)" json:"threshold_critical"`
	OwnerName         string          `gorm:"size:128" json:"owner_name"`
	IsActive          *bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (k KriDefinition) GetOrgId() string {
	return k.OrgId
}

func (k *KriDefinition) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, k.OrgId, "kri_definitions", strconv.Itoa(k.ID), ChangeEventInsert, k, nil)
}

func (k *KriDefinition) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, k.OrgId, "kri_definitions", strconv.Itoa(k.ID), ChangeEventUpdate, k, k)
}

func (k *KriDefinition) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, k.OrgId, "kri_definitions", strconv.Itoa(k.ID), ChangeEventDelete, nil, k)
}
