package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole assigns a role string to a user. (user_id, role) is unique.
type UserRole struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_user_role"`
	Role       string     `json:"role" gorm:"size:32;not null;uniqueIndex:idx_user_role"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty" gorm:"type:char(36)"`
	AssignedAt time.Time  `json:"assigned_at" gorm:"autoCreateTime"`
}

// BeforeCreate sets UUID before creating the record.
func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
