package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/logger"
	"authcore/internal/metrics"
	"authcore/internal/model"
	"authcore/internal/provider"
	"authcore/internal/repository"
)

// AuthenticateOptions carries request metadata for a provider sign-in.
type AuthenticateOptions struct {
	Tokens     *provider.Tokens
	UserAgent  string
	IPAddress  string
	DeviceInfo string
}

// AuthResult is returned by a successful provider sign-in.
type AuthResult struct {
	User      *model.User   `json:"user"`
	Token     string        `json:"token"`
	TokenID   uuid.UUID     `json:"tokenId"`
	ExpiresAt time.Time     `json:"expiresAt"`
	IsNewUser bool          `json:"isNewUser"`
	Provider  provider.Type `json:"provider"`
}

// AuthService handles authentication operations.
type AuthService interface {
	// FindOrCreateUser resolves a provider profile to a local user, linking or creating as needed.
	FindOrCreateUser(ctx context.Context, profile *provider.Profile, tokens *provider.Tokens) (user *model.User, isNewUser bool, err error)
	AuthenticateWithProvider(ctx context.Context, profile *provider.Profile, opts AuthenticateOptions) (*AuthResult, error)
	GetUserWithAccounts(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UnlinkAccount(ctx context.Context, userID, accountID uuid.UUID) error
}

type authService struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	tokens   TokenService
	recorder EventRecorder
	metrics  metrics.Recorder
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// AuthServiceConfig carries the dependencies of NewAuthService.
type AuthServiceConfig struct {
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Roles    repository.RoleRepository
	Tokens   TokenService
	Recorder EventRecorder
	Metrics  metrics.Recorder
	Logger   *logger.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(cfg AuthServiceConfig) AuthService {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = (*metrics.Collector)(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &authService{
		users:    cfg.Users,
		accounts: cfg.Accounts,
		roles:    cfg.Roles,
		tokens:   cfg.Tokens,
		recorder: cfg.Recorder,
		metrics:  cfg.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      cfg.Logger,
		now:      time.Now,
	}
}

// FindOrCreateUser matches on the provider identity first, then on email, and
// otherwise creates the user with its first account and the USER role in one transaction.
func (s *authService) FindOrCreateUser(ctx context.Context, profile *provider.Profile, tokens *provider.Tokens) (*model.User, bool, error) {
	if profile == nil {
		return nil, false, fmt.Errorf("%w: profile is required", apperrors.ErrValidation)
	}
	// Providers disagree on email case; matching and storage use lower case.
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if err := s.validate.Struct(profile); err != nil {
		return nil, false, validationError(err)
	}

	account, err := s.accounts.FindByProvider(ctx, string(profile.Provider), profile.ID)
	switch {
	case err == nil:
		return s.refreshAccount(ctx, account, profile, tokens)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find account: %w", err)
	}

	user, err := s.users.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if err := s.linkAccount(ctx, user, profile, tokens); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}

	user = &model.User{
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
		IsActive:  true,
	}
	account = s.newAccount(profile, tokens)
	if err := s.users.CreateWithAccount(ctx, user, account, string(auth.RoleUser)); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, fmt.Errorf("%w: user or account already exists", apperrors.ErrConflict)
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", "user_id", user.ID, "provider", profile.Provider)
	return user, true, nil
}

func (s *authService) refreshAccount(ctx context.Context, account *model.Account, profile *provider.Profile, tokens *provider.Tokens) (*model.User, bool, error) {
	applyTokens(account, tokens)
	account.LastUsedAt = s.now()
	if len(profile.Raw) > 0 {
		account.ProviderData = datatypes.JSON(profile.Raw)
	}
	user := account.User
	account.User = nil
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, false, fmt.Errorf("update account: %w", err)
	}

	if user == nil {
		var err error
		user, err = s.users.FindByID(ctx, account.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, apperrors.ErrUserNotFound
			}
			return nil, false, fmt.Errorf("find user: %w", err)
		}
	}
	return user, false, nil
}

func (s *authService) linkAccount(ctx context.Context, user *model.User, profile *provider.Profile, tokens *provider.Tokens) error {
	account := s.newAccount(profile, tokens)
	account.UserID = user.ID
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s account already linked", apperrors.ErrConflict, profile.Provider)
		}
		return fmt.Errorf("link account: %w", err)
	}

	s.recorder.Record(ctx, model.AuthEvent{
		Event:     model.EventAccountLinked,
		UserID:    &user.ID,
		AccountID: &account.ID,
		Provider:  string(profile.Provider),
	})
	s.log.Info("account linked", "user_id", user.ID, "provider", profile.Provider)
	return nil
}

func (s *authService) newAccount(profile *provider.Profile, tokens *provider.Tokens) *model.Account {
	account := &model.Account{
		Type:              model.AccountTypeOAuth,
		Provider:          string(profile.Provider),
		ProviderAccountID: profile.ID,
		LastUsedAt:        s.now(),
	}
	if len(profile.Raw) > 0 {
		account.ProviderData = datatypes.JSON(profile.Raw)
	}
	applyTokens(account, tokens)
	return account
}

// applyTokens copies provider token material onto the account, keeping stored values
// the provider did not send again.
func applyTokens(account *model.Account, tokens *provider.Tokens) {
	if tokens == nil {
		return
	}
	setIfPresent(&account.AccessToken, tokens.AccessToken)
	setIfPresent(&account.RefreshToken, tokens.RefreshToken)
	setIfPresent(&account.IDToken, tokens.IDToken)
	setIfPresent(&account.TokenType, tokens.TokenType)
	setIfPresent(&account.Scope, tokens.Scope)
	if !tokens.Expiry.IsZero() {
		expiry := tokens.Expiry
		account.ExpiresAt = &expiry
	}
}

func setIfPresent(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

// AuthenticateWithProvider signs a user in and issues an access token.
func (s *authService) AuthenticateWithProvider(ctx context.Context, profile *provider.Profile, opts AuthenticateOptions) (*AuthResult, error) {
	var providerName string
	if profile != nil {
		providerName = string(profile.Provider)
	}

	user, isNew, err := s.FindOrCreateUser(ctx, profile, opts.Tokens)
	if err != nil {
		s.loginFailed(ctx, nil, providerName, opts, err.Error())
		return nil, err
	}
	if !user.IsActive {
		s.loginFailed(ctx, &user.ID, providerName, opts, "user is inactive")
		return nil, fmt.Errorf("%w: user is inactive", apperrors.ErrUnauthorized)
	}

	issued, err := s.tokens.CreateToken(ctx, user.ID, CreateTokenOptions{
		Type:       model.TokenTypeAccess,
		UserAgent:  opts.UserAgent,
		IPAddress:  opts.IPAddress,
		DeviceInfo: opts.DeviceInfo,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	roles, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	user.Roles = roles

	s.recorder.Record(ctx, model.AuthEvent{
		Event:     model.EventLoginSuccess,
		UserID:    &user.ID,
		TokenID:   &issued.ID,
		Provider:  providerName,
		IPAddress: opts.IPAddress,
		UserAgent: opts.UserAgent,
		Metadata:  metadata(map[string]any{"is_new_user": isNew}),
	})
	s.metrics.RecordLogin(providerName, isNew)

	return &AuthResult{
		User:      user,
		Token:     issued.Token,
		TokenID:   issued.ID,
		ExpiresAt: issued.ExpiresAt,
		IsNewUser: isNew,
		Provider:  provider.Type(providerName),
	}, nil
}

func (s *authService) loginFailed(ctx context.Context, userID *uuid.UUID, providerName string, opts AuthenticateOptions, reason string) {
	s.recorder.Record(ctx, model.AuthEvent{
		Event:     model.EventLoginFailed,
		UserID:    userID,
		Provider:  providerName,
		IPAddress: opts.IPAddress,
		UserAgent: opts.UserAgent,
		Metadata:  metadata(map[string]any{"reason": reason}),
	})
	s.metrics.RecordLoginFailure(providerName)
	s.log.Warn("provider sign-in rejected", "provider", providerName, "reason", reason)
}

// GetUserWithAccounts returns the user with linked accounts and current roles.
func (s *authService) GetUserWithAccounts(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindWithAccounts(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	user.Roles = roles
	return user, nil
}

// UnlinkAccount removes a linked account unless it is the user's last one.
func (s *authService) UnlinkAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}
	if account.UserID != userID {
		return apperrors.ErrAccountNotFound
	}

	n, err := s.accounts.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n <= 1 {
		return apperrors.ErrLastAccount
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.recorder.Record(ctx, model.AuthEvent{
		Event:     model.EventAccountUnlinked,
		UserID:    &userID,
		AccountID: &account.ID,
		Provider:  account.Provider,
	})
	return nil
}
