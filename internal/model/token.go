package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenType represents what an issued bearer credential may be used for.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
	TokenTypeReset   TokenType = "RESET"
	TokenTypeVerify  TokenType = "VERIFY"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	switch t {
	case TokenTypeAccess, TokenTypeRefresh, TokenTypeReset, TokenTypeVerify:
		return true
	}
	return false
}

// Token is the stored record of an issued bearer credential.
// Revocation flips IsActive; rows are only deleted once inactive and expired.
type Token struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;index"`
	Token      string     `json:"-" gorm:"size:768;uniqueIndex;not null"` // auth.MaxTokenLength
	Type       TokenType  `json:"type" gorm:"type:varchar(16);not null;default:'ACCESS'"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true;index"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null;index"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty" gorm:"size:512"`
	IPAddress  string     `json:"ip_address,omitempty" gorm:"size:64"`
	DeviceInfo string     `json:"device_info,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
