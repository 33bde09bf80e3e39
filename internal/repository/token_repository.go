package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/model"
)

// TokenRepository defines issued token persistence operations.
type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	FindByToken(ctx context.Context, token string) (*model.Token, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Token, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Token, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	TouchLastUsed(ctx context.Context, ids []uuid.UUID, at time.Time) error
	DeleteExpiredInactive(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	return r.db.WithContext(ctx).Omit("User").Create(token).Error
}

// FindByToken looks a token up by its signed value, with the owning user preloaded.
func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*model.Token, error) {
	var t model.Token
	if err := r.db.WithContext(ctx).Preload("User").Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Token, error) {
	var t model.Token
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUser lists a user's tokens, newest first.
func (r *tokenRepository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Token, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var tokens []model.Token
	if err := q.Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// Deactivate marks a token inactive. Deactivating an inactive token is not an error.
func (r *tokenRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Token{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *tokenRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Token{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *tokenRepository) TouchLastUsed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Token{}).
		Where("id IN ?", ids).
		UpdateColumn("last_used_at", at).Error
}

// DeleteExpiredInactive removes tokens that are both past expiry and inactive.
// Expired tokens still flagged active are kept.
func (r *tokenRepository) DeleteExpiredInactive(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? AND is_active = ?", now, false).
		Delete(&model.Token{})
	return res.RowsAffected, res.Error
}
