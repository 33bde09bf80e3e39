package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/model"
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindWithAccounts(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.UserSummary, error)
	Count(ctx context.Context) (int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CreateWithAccount inserts the user, its first linked account and a default role atomically.
	CreateWithAccount(ctx context.Context, user *model.User, account *model.Account, role string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindWithAccounts(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Accounts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns a page of users, newest first, with account and token counts.
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]model.UserSummary, error) {
	var users []model.UserSummary
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("users.*, " +
			"(SELECT COUNT(*) FROM accounts WHERE accounts.user_id = users.id) AS accounts_count, " +
			"(SELECT COUNT(*) FROM tokens WHERE tokens.user_id = users.id) AS tokens_count").
		Order("users.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero when the value did not change, so confirm the row exists.
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// Delete removes the user; accounts, tokens and roles cascade.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Select("Accounts", "Tokens", "UserRoles").Delete(&model.User{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CreateWithAccount(ctx context.Context, user *model.User, account *model.Account, role string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Accounts", "Tokens", "UserRoles").Create(user).Error; err != nil {
			return err
		}
		account.UserID = user.ID
		if err := tx.Omit("User").Create(account).Error; err != nil {
			return err
		}
		return tx.Create(&model.UserRole{UserID: user.ID, Role: role}).Error
	})
}
