package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// IncidentLog is a watched table: every mutation is captured into the change
// outbox and fanned out to dependent modules.
type IncidentLog struct {
	ID            int        `gorm:"primary_key" json:"id"`
	OrgId         string     `gorm:"index;size:64;not null" json:"org_id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Severity      string     `gorm:"size:20" json:"severity"`
	Status        string     `gorm:"size:30" json:"status"`
	ImpactArea    string     `gorm:"size:100" json:"impact_area"`
	OccurredAt    *time.Time `json:"occurred_at"`
	ReportedBy    string     `gorm:"size:128" json:"reported_by"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	RootCause     string     `gorm:"type:text" json:"root_cause"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i IncidentLog) GetOrgId() string {
	return i.OrgId
}

func (i *IncidentLog) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, i.OrgId, "incident_logs", strconv.Itoa(i.ID), ChangeEventInsert, i, nil)
}

func (i *IncidentLog) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, i.OrgId, "incident_logs", strconv.Itoa(i.ID), ChangeEventUpdate, i, i)
}

func (i *IncidentLog) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, i.OrgId, "incident_logs", strconv.Itoa(i.ID), ChangeEventDelete, nil, i)
}
