package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/provider"
	"authcore/internal/service"
)

// AuthProcedures implements the auth procedures over the services.
type AuthProcedures struct {
	tokens     service.TokenService
	auth       service.AuthService
	roles      service.RoleService
	users      service.UserService
	providers  *provider.Registry
	backendURL string
}

// AuthProceduresConfig carries the dependencies of NewAuthProcedures.
type AuthProceduresConfig struct {
	Tokens     service.TokenService
	Auth       service.AuthService
	Roles      service.RoleService
	Users      service.UserService
	Providers  *provider.Registry
	BackendURL string
}

// NewAuthProcedures creates the auth procedure set.
func NewAuthProcedures(cfg AuthProceduresConfig) *AuthProcedures {
	if cfg.Providers == nil {
		cfg.Providers = provider.NewRegistry()
	}
	return &AuthProcedures{
		tokens:     cfg.Tokens,
		auth:       cfg.Auth,
		roles:      cfg.Roles,
		users:      cfg.Users,
		providers:  cfg.Providers,
		backendURL: cfg.BackendURL,
	}
}

// GetUserTokensInput selects which sessions to list. ActiveOnly defaults to true.
type GetUserTokensInput struct {
	ActiveOnly *bool `json:"activeOnly"`
}

// TokenIDInput names one of the caller's tokens.
type TokenIDInput struct {
	TokenID string `json:"tokenId" validate:"required,uuid"`
}

// AccountIDInput names one of the caller's linked accounts.
type AccountIDInput struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
}

// ListUsersInput pages the admin user listing.
type ListUsersInput struct {
	Page  int `json:"page" validate:"min=1"`
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// ApplyDefaults fills page 1 and 10 rows per page.
func (in *ListUsersInput) ApplyDefaults() {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 10
	}
}

// UserRoleInput names a user and a role.
type UserRoleInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,oneof=USER MANAGER ADMIN"`
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", apperrors.ErrValidation, field)
	}
	return id, nil
}

// Procedures returns the static procedure table.
func (p *AuthProcedures) Procedures() []Procedure {
	return []Procedure{
		{Name: "getGoogleAuthUrl", Kind: KindQuery, Handle: p.getGoogleAuthURL},
		{Name: "getAvailableProviders", Kind: KindQuery, Handle: p.getAvailableProviders},
		{Name: "getAuthStatus", Kind: KindQuery, Handle: p.getAuthStatus},

		{Name: "getCurrentUser", Kind: KindQuery, RequiresAuth: true, Handle: p.getCurrentUser},
		{Name: "getUserProfile", Kind: KindQuery, RequiresAuth: true, Handle: p.getUserProfile},
		{
			Name: "getUserTokens", Kind: KindQuery, RequiresAuth: true,
			NewInput: func() any { return &GetUserTokensInput{} },
			Handle:   p.getUserTokens,
		},
		{Name: "getUserAccounts", Kind: KindQuery, RequiresAuth: true, Handle: p.getUserAccounts},

		{Name: "signOut", Kind: KindMutation, RequiresAuth: true, Handle: p.signOut},
		{
			Name: "revokeToken", Kind: KindMutation, RequiresAuth: true,
			NewInput: func() any { return &TokenIDInput{} },
			Handle:   p.revokeToken,
		},
		{Name: "revokeAllTokens", Kind: KindMutation, RequiresAuth: true, Handle: p.revokeAllTokens},
		{
			Name: "unlinkAccount", Kind: KindMutation, RequiresAuth: true,
			NewInput: func() any { return &AccountIDInput{} },
			Handle:   p.unlinkAccount,
		},

		// Managers see every user; ADMIN ranks above MANAGER and passes too.
		{
			Name: "getAllUsers", Kind: KindQuery, RequiresAuth: true, MinRole: auth.RoleManager,
			NewInput: func() any { return &ListUsersInput{} },
			Handle:   p.getAllUsers,
		},
		{Name: "cleanupExpiredTokens", Kind: KindMutation, RequiresAuth: true, MinRole: auth.RoleAdmin, Handle: p.cleanupExpiredTokens},

		// Role grants need an explicit ADMIN grant.
		{
			Name: "assignUserRole", Kind: KindMutation, RequiresAuth: true, AnyOf: []auth.Role{auth.RoleAdmin},
			NewInput: func() any { return &UserRoleInput{} },
			Handle:   p.assignUserRole,
		},
		{
			Name: "removeUserRole", Kind: KindMutation, RequiresAuth: true, AnyOf: []auth.Role{auth.RoleAdmin},
			NewInput: func() any { return &UserRoleInput{} },
			Handle:   p.removeUserRole,
		},
	}
}

func (p *AuthProcedures) getGoogleAuthURL(ctx context.Context, req *Request) (any, error) {
	return p.backendURL + "/auth/" + string(provider.Google), nil
}

func (p *AuthProcedures) getAvailableProviders(ctx context.Context, req *Request) (any, error) {
	return p.providers.List(), nil
}

func (p *AuthProcedures) getAuthStatus(ctx context.Context, req *Request) (any, error) {
	return newAuthStatus(req.Auth, p.providers), nil
}

func (p *AuthProcedures) getCurrentUser(ctx context.Context, req *Request) (any, error) {
	return newUserView(req.Caller()), nil
}

func (p *AuthProcedures) getUserProfile(ctx context.Context, req *Request) (any, error) {
	user, err := p.auth.GetUserWithAccounts(ctx, req.Caller().ID)
	if err != nil {
		return nil, err
	}
	return newProfileView(user), nil
}

func (p *AuthProcedures) getUserTokens(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*GetUserTokensInput)
	activeOnly := in.ActiveOnly == nil || *in.ActiveOnly

	tokens, err := p.tokens.GetUserTokens(ctx, req.Caller().ID, activeOnly)
	if err != nil {
		return nil, err
	}
	return newSessionList(tokens, req.Auth.Token.ID), nil
}

func (p *AuthProcedures) getUserAccounts(ctx context.Context, req *Request) (any, error) {
	user, err := p.auth.GetUserWithAccounts(ctx, req.Caller().ID)
	if err != nil {
		return nil, err
	}
	return newAccountViews(user.Accounts), nil
}

func (p *AuthProcedures) signOut(ctx context.Context, req *Request) (any, error) {
	if err := p.tokens.Logout(ctx, req.Auth.Token.Token); err != nil {
		return nil, err
	}
	return OperationResult{Success: true, Message: "Successfully signed out"}, nil
}

func (p *AuthProcedures) revokeToken(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*TokenIDInput)
	tokenID, err := parseID("tokenId", in.TokenID)
	if err != nil {
		return nil, err
	}
	if err := p.tokens.RevokeUserToken(ctx, req.Caller().ID, tokenID); err != nil {
		return nil, err
	}
	return OperationResult{Success: true, Message: "Token revoked successfully"}, nil
}

func (p *AuthProcedures) revokeAllTokens(ctx context.Context, req *Request) (any, error) {
	n, err := p.tokens.RevokeAllUserTokens(ctx, req.Caller().ID)
	if err != nil {
		return nil, err
	}
	return RevokeAllResult{
		OperationResult: OperationResult{Success: true, Message: fmt.Sprintf("Successfully revoked %d tokens", n)},
		RevokedCount:    n,
	}, nil
}

func (p *AuthProcedures) unlinkAccount(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*AccountIDInput)
	accountID, err := parseID("accountId", in.AccountID)
	if err != nil {
		return nil, err
	}
	if err := p.auth.UnlinkAccount(ctx, req.Caller().ID, accountID); err != nil {
		return nil, err
	}
	return OperationResult{Success: true}, nil
}

func (p *AuthProcedures) getAllUsers(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*ListUsersInput)
	page, err := p.users.ListUsers(ctx, in.Page, in.Limit)
	if err != nil {
		return nil, err
	}

	out := UserList{
		Users:       make([]UserListItem, 0, len(page.Users)),
		TotalCount:  page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.Page,
	}
	for _, u := range page.Users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		out.Users = append(out.Users, UserListItem{
			ID:            u.ID,
			Email:         u.Email,
			Name:          u.Name,
			Image:         u.AvatarURL,
			IsActive:      u.IsActive,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
			AccountsCount: u.AccountsCount,
			TokensCount:   u.TokensCount,
			Roles:         roles,
		})
	}
	return out, nil
}

func (p *AuthProcedures) cleanupExpiredTokens(ctx context.Context, req *Request) (any, error) {
	n, err := p.tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		return nil, err
	}
	return CleanupResult{
		OperationResult: OperationResult{Success: true, Message: fmt.Sprintf("Successfully cleaned up %d expired tokens", n)},
		CleanedCount:    n,
	}, nil
}

func (p *AuthProcedures) assignUserRole(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*UserRoleInput)
	userID, err := parseID("userId", in.UserID)
	if err != nil {
		return nil, err
	}
	assignedBy := req.Caller().ID
	if err := p.roles.AssignRole(ctx, userID, in.Role, &assignedBy); err != nil {
		return nil, err
	}
	return OperationResult{Success: true, Message: fmt.Sprintf("Role %s assigned to user %s", in.Role, in.UserID)}, nil
}

func (p *AuthProcedures) removeUserRole(ctx context.Context, req *Request) (any, error) {
	in := req.Input.(*UserRoleInput)
	userID, err := parseID("userId", in.UserID)
	if err != nil {
		return nil, err
	}
	if err := p.roles.RemoveRole(ctx, userID, in.Role); err != nil {
		return nil, err
	}
	return OperationResult{Success: true, Message: fmt.Sprintf("Role %s removed from user %s", in.Role, in.UserID)}, nil
}
