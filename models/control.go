package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type Control struct {
	ID            int        `gorm:"primary_key" json:"id"`
	OrgId         string     `gorm:"index;size:64;not null" json:"org_id"`
	ControlName   string     `gorm:"size:255;not null" json:"control_name"`
	ControlType   string     `gorm:"size:60" json:"control_type"`
	Frequency     string     `gorm:"size:30" json:"frequency"`
	Status        string     `gorm:"size:30" json:"status"`
	OwnerName     string     `gorm:"size:128" json:"owner_name"`
	Effectiveness string     `gorm:"size:30" json:"effectiveness"`
	LastTestedAt  *time.Time `json:"last_tested_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c Control) GetOrgId() string {
	return c.OrgId
}

func (c *Control) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, c.OrgId, "controls", strconv.Itoa(c.ID), ChangeEventInsert, c, nil)
}

func (c *Control) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, c.OrgId, "controls", strconv.Itoa(c.ID), ChangeEventUpdate, c, c)
}

func (c *Control) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, c.OrgId, "controls", strconv.Itoa(c.ID), ChangeEventDelete, nil, c)
}
