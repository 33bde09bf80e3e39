package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/model"
)

// EventRepository defines auth audit log persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *model.AuthEvent) error
	CreateBatch(ctx context.Context, events []model.AuthEvent) error
	ListRecent(ctx context.Context, userID *uuid.UUID, limit int) ([]model.AuthEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new auth event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create creates a new auth event entry.
func (r *eventRepository) Create(ctx context.Context, event *model.AuthEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch creates multiple auth event entries in a single statement per 100 rows.
func (r *eventRepository) CreateBatch(ctx context.Context, events []model.AuthEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

// ListRecent lists the newest events, optionally for one user.
func (r *eventRepository) ListRecent(ctx context.Context, userID *uuid.UUID, limit int) ([]model.AuthEvent, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var events []model.AuthEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
