package models

import (
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"gorm.io/gorm"
)

type ThirdPartyProfile struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	OrgId              string    `gorm:"index;size:64;not null" json:"org_id"`
	VendorName         string    `gorm:"size:255;not null" json:"vendor_name"`
	ServiceDescription string    `gorm:"type:text" json:"service_description"`
	RiskRating         string    `gorm:"size:30" json:"risk_rating"`
	Status             string    `gorm:"size:30" json:"status"`
	ContactName        string    `gorm:"size:128" json:"contact_name"`
	ContactEmail       string    `gorm:"size:255" json:"contact_email"`
	ContactPhone       string    `gorm:"size:40" json:"contact_phone"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t ThirdPartyProfile) GetOrgId() string {
	return t.OrgId
}

func (t *ThirdPartyProfile) BeforeSave(tx *gorm.DB) error {
	t.ContactPhone = utils.NormalizePhoneNumber(t.ContactPhone, utils.CountryCode)
	if t.ContactEmail != "" && !utils.IsValidEmail(t.ContactEmail) {
		return fmt.Errorf("invalid contact email %q", t.ContactEmail)
	}
	return nil
}

func (t *ThirdPartyProfile) AfterCreate(tx *gorm.DB) error {
	return RecordChange(tx, t.OrgId, "third_party_profiles", strconv.Itoa(t.ID), ChangeEventInsert, t, nil)
}

func (t *ThirdPartyProfile) AfterUpdate(tx *gorm.DB) error {
	return RecordChange(tx, t.OrgId, "third_party_profiles", strconv.Itoa(t.ID), ChangeEventUpdate, t, t)
}

func (t *ThirdPartyProfile) AfterDelete(tx *gorm.DB) error {
	return RecordChange(tx, t.OrgId, "third_party_profiles", strconv.Itoa(t.ID), ChangeEventDelete, nil, t)
}
