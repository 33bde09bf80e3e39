package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a person who signed in through one or more providers.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name      string    `json:"name" gorm:"size:255"`
	AvatarURL string    `json:"image,omitempty" gorm:"size:1024"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Roles is filled from user_roles on every validation and never persisted here.
	Roles []string `json:"roles,omitempty" gorm:"-"`

	// Relations
	Accounts  []Account  `json:"accounts,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Tokens    []Token    `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	UserRoles []UserRole `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserSummary is a User row with per-user counts, used by admin listings.
type UserSummary struct {
	User
	AccountsCount int64 `json:"accounts_count"`
	TokensCount   int64 `json:"tokens_count"`
}
