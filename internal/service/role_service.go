package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/logger"
	"authcore/internal/model"
	"authcore/internal/repository"
)

// RoleService manages role grants.
type RoleService interface {
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	// AssignRole is idempotent: granting a role the user already holds succeeds without change.
	AssignRole(ctx context.Context, userID uuid.UUID, role string, assignedBy *uuid.UUID) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) error
}

type roleService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	recorder EventRecorder
	log      *logger.Logger
}

// NewRoleService creates a new role service.
func NewRoleService(users repository.UserRepository, roles repository.RoleRepository, recorder EventRecorder, log *logger.Logger) RoleService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &roleService{users: users, roles: roles, recorder: recorder, log: log}
}

func (s *roleService) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

func (s *roleService) AssignRole(ctx context.Context, userID uuid.UUID, role string, assignedBy *uuid.UUID) error {
	r, err := auth.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	added, err := s.roles.Assign(ctx, &model.UserRole{UserID: userID, Role: string(r), AssignedBy: assignedBy})
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if !added {
		return nil
	}

	s.recorder.Record(ctx, model.AuthEvent{
		Event:    model.EventRoleAssigned,
		UserID:   &userID,
		Metadata: metadata(map[string]any{"role": r, "assigned_by": assignedBy}),
	})
	s.log.Info("role assigned", "user_id", userID, "role", r)
	return nil
}

func (s *roleService) RemoveRole(ctx context.Context, userID uuid.UUID, role string) error {
	r, err := auth.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	removed, err := s.roles.Remove(ctx, userID, string(r))
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	if !removed {
		return nil
	}

	s.recorder.Record(ctx, model.AuthEvent{
		Event:    model.EventRoleRemoved,
		UserID:   &userID,
		Metadata: metadata(map[string]any{"role": r}),
	})
	s.log.Info("role removed", "user_id", userID, "role", r)
	return nil
}
