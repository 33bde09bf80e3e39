package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventKind names an entry in the auth audit log.
type EventKind string

const (
	EventLoginSuccess    EventKind = "LOGIN_SUCCESS"
	EventLoginFailed     EventKind = "LOGIN_FAILED"
	EventLogout          EventKind = "LOGOUT"
	EventTokenCreated    EventKind = "TOKEN_CREATED"
	EventTokenExpired    EventKind = "TOKEN_EXPIRED"
	EventTokenRevoked    EventKind = "TOKEN_REVOKED"
	EventAccountLinked   EventKind = "ACCOUNT_LINKED"
	EventAccountUnlinked EventKind = "ACCOUNT_UNLINKED"
	EventRoleAssigned    EventKind = "ROLE_ASSIGNED"
	EventRoleRemoved     EventKind = "ROLE_REMOVED"
)

// AuthEvent represents an audit log entry.
// Entries are written for successes and failures alike.
type AuthEvent struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Event     EventKind      `json:"event" gorm:"type:varchar(32);not null;index"`
	UserID    *uuid.UUID     `json:"user_id,omitempty" gorm:"type:char(36);index"`
	Provider  string         `json:"provider,omitempty" gorm:"size:32"`
	AccountID *uuid.UUID     `json:"account_id,omitempty" gorm:"type:char(36)"`
	TokenID   *uuid.UUID     `json:"token_id,omitempty" gorm:"type:char(36)"`
	IPAddress string         `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent string         `json:"user_agent,omitempty" gorm:"size:512"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (e *AuthEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
