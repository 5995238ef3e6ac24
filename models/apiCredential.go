package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/grc_backend/config"
	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"gorm.io/gorm"
)

// ApiCredential is an org-scoped service credential used to mint JWTs.
type ApiCredential struct {
	ID         int        `gorm:"primary_key" json:"id"`
	OrgId      string     `gorm:"index;size:64;not null" json:"org_id"`
	ClientId   string     `gorm:"uniqueIndex;size:100;not null" json:"client_id"`
	SecretHash string     `gorm:"size:100;not null" json:"-"`
	Role       string     `gorm:"size:30" json:"role"`
	IsActive   *bool      `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c ApiCredential) GetOrgId() string {
	return c.OrgId
}

var ErrInvalidCredential = errors.New("invalid client credentials")

func CreateApiCredential(ctx context.Context, orgId string, clientId string, secret string, role string) (*ApiCredential, error) {
	hash, err := utils.HashSecret(secret)
	if err != nil {
		return nil, err
	}
	cred := ApiCredential{
		OrgId:      orgId,
		ClientId:   clientId,
		SecretHash: string(hash),
		Role:       role,
		IsActive:   utils.NewTrue(),
	}
	db := config.GetDB().WithContext(ctx)
	if err := db.Create(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// VerifyApiCredential checks client id + secret and stamps last_used_at.
func VerifyApiCredential(ctx context.Context, clientId string, secret string) (*ApiCredential, error) {
	db := config.GetDB().WithContext(ctx)

	var cred ApiCredential
	err := db.Where("client_id = ?", clientId).Take(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if cred.IsActive != nil && !*cred.IsActive {
		return nil, ErrInvalidCredential
	}
	if err := utils.CompareSecret(cred.SecretHash, secret); err != nil {
		return nil, ErrInvalidCredential
	}

	now := time.Now()
	_ = db.Model(&cred).Update("last_used_at", &now).Error
	return &cred, nil
}
