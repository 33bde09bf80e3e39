package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"authcore/internal/model"
)

// RoleRepository defines user role persistence operations.
type RoleRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
	// Assign inserts the role unless the user already holds it, and reports whether a row was added.
	Assign(ctx context.Context, role *model.UserRole) (bool, error)
	Remove(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []model.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("role ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Role)
	}
	return out, nil
}

func (r *roleRepository) Assign(ctx context.Context, role *model.UserRole) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(role)
	return res.RowsAffected > 0, res.Error
}

func (r *roleRepository) Remove(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&model.UserRole{})
	return res.RowsAffected > 0, res.Error
}
