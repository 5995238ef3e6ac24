package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type GovernancePolicy struct {
	ID            int        `gorm:"primary_key" json:"id"`
	OrgId         string     `gorm:"index;size:64;not null" json:"org_id"`
	PolicyName    string     `gorm:"size:255;not null" json:"policy_name"`
	PolicyType    string     `gorm:"size:60" json:"policy_type"`
	Status        string     `gorm:"size:30" json:"status"`
	OwnerName     string     `gorm:"size:128" json:"owner_name"`
	EffectiveDate *time.Time `json:"effective_date"`
	ReviewDate    *time.Time `json:"review_date"`
	DocumentRef   string     `gorm:"size:255" json:"document_ref"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p GovernancePolicy) GetOrgId() string {
	return p.OrgId
}

func (p *GovernancePolicy) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, p.OrgId, "governance_policies", strconv.Itoa(p.ID), ChangeEventInsert, p, nil)
}

func (p *GovernancePolicy) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, p.OrgId, "governance_policies", strconv.Itoa(p.ID), ChangeEventUpdate, p, p)
}

func (p *GovernancePolicy) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, p.OrgId, "governance_policies", strconv.Itoa(p.ID), ChangeEventDelete, nil, p)
}
