package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccountTypeOAuth is the only account type issued by provider sign-in.
const AccountTypeOAuth = "oauth"

// Account links an external provider identity to a local user.
// (provider, provider_account_id) is unique across the table.
type Account struct {
	ID                uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID            uuid.UUID      `json:"user_id" gorm:"type:char(36);not null;index"`
	Type              string         `json:"type" gorm:"size:32;not null;default:'oauth'"`
	Provider          string         `json:"provider" gorm:"size:32;not null;uniqueIndex:idx_provider_account"`
	ProviderAccountID string         `json:"provider_account_id" gorm:"size:255;not null;uniqueIndex:idx_provider_account"`
	AccessToken       *string        `json:"-" gorm:"type:text"` // Never expose in JSON
	RefreshToken      *string        `json:"-" gorm:"type:text"`
	IDToken           *string        `json:"-" gorm:"type:text"`
	TokenType         *string        `json:"-" gorm:"size:32"`
	Scope             *string        `json:"-" gorm:"size:512"`
	ExpiresAt         *time.Time     `json:"token_expires_at,omitempty"`
	ProviderData      datatypes.JSON `json:"-"`
	LastUsedAt        time.Time      `json:"last_used_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Type == "" {
		a.Type = AccountTypeOAuth
	}
	return nil
}
