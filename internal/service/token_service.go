package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/logger"
	"authcore/internal/metrics"
	"authcore/internal/model"
	"authcore/internal/repository"
)

// Validation failure reasons reported in ValidationResult.Error.
const (
	ReasonTokenNotFound    = "Token not found"
	ReasonInvalidSignature = "Invalid token signature"
	ReasonTokenInactive    = "Token is inactive"
	ReasonTokenExpired     = "Token has expired"
	ReasonUserInactive     = "User is inactive"
)

// EventRecorder receives audit events and token usage off the request path.
type EventRecorder interface {
	Record(ctx context.Context, event model.AuthEvent)
	Touch(tokenID uuid.UUID)
}

// CreateTokenOptions tunes a token issuance. Zero values use the defaults.
type CreateTokenOptions struct {
	Type       model.TokenType
	ExpiresIn  string
	UserAgent  string
	IPAddress  string
	DeviceInfo string
}

// IssuedToken is the credential handed back to the caller.
type IssuedToken struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidationResult reports a validation outcome. User and Token are set only when Valid.
type ValidationResult struct {
	Valid bool
	User  *model.User
	Token *model.Token
	Error string
}

type validateOptions struct {
	requireActive  bool
	allowExpired   bool
	updateLastUsed bool
}

// ValidateOption changes the checks ValidateToken applies.
type ValidateOption func(*validateOptions)

// AllowInactive accepts tokens that were logged out or revoked.
func AllowInactive() ValidateOption {
	return func(o *validateOptions) { o.requireActive = false }
}

// AllowExpired accepts tokens past their expiry.
func AllowExpired() ValidateOption {
	return func(o *validateOptions) { o.allowExpired = true }
}

// UpdateLastUsed records the use of a valid token.
func UpdateLastUsed() ValidateOption {
	return func(o *validateOptions) { o.updateLastUsed = true }
}

// TokenService issues, validates and revokes bearer credentials.
type TokenService interface {
	CreateToken(ctx context.Context, userID uuid.UUID, opts CreateTokenOptions) (*IssuedToken, error)
	// ValidateToken never fails for a bad credential; the error is reserved for store failures.
	ValidateToken(ctx context.Context, token string, opts ...ValidateOption) (*ValidationResult, error)
	Logout(ctx context.Context, token string) error
	RevokeToken(ctx context.Context, token string) error
	RevokeUserToken(ctx context.Context, userID, tokenID uuid.UUID) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) (int64, error)
	CleanupExpiredTokens(ctx context.Context) (int64, error)
	GetUserTokens(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Token, error)
}

type tokenService struct {
	users         repository.UserRepository
	tokens        repository.TokenRepository
	roles         repository.RoleRepository
	jwt           *auth.JWTService
	recorder      EventRecorder
	metrics       metrics.Recorder
	log           *logger.Logger
	defaultExpiry string
	now           func() time.Time
}

// TokenServiceConfig carries the dependencies of NewTokenService.
type TokenServiceConfig struct {
	Users         repository.UserRepository
	Tokens        repository.TokenRepository
	Roles         repository.RoleRepository
	JWT           *auth.JWTService
	Recorder      EventRecorder
	Metrics       metrics.Recorder
	Logger        *logger.Logger
	DefaultExpiry string
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenServiceConfig) TokenService {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = (*metrics.Collector)(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.DefaultExpiry == "" {
		cfg.DefaultExpiry = auth.DefaultTokenExpiry
	}
	return &tokenService{
		users:         cfg.Users,
		tokens:        cfg.Tokens,
		roles:         cfg.Roles,
		jwt:           cfg.JWT,
		recorder:      cfg.Recorder,
		metrics:       cfg.Metrics,
		log:           cfg.Logger,
		defaultExpiry: cfg.DefaultExpiry,
		now:           time.Now,
	}
}

// CreateToken signs a credential for the user and stores its record.
func (s *tokenService) CreateToken(ctx context.Context, userID uuid.UUID, opts CreateTokenOptions) (*IssuedToken, error) {
	tokenType := opts.Type
	if tokenType == "" {
		tokenType = model.TokenTypeAccess
	}
	if !tokenType.Valid() {
		return nil, fmt.Errorf("%w: unknown token type %q", apperrors.ErrValidation, tokenType)
	}

	expiresIn := opts.ExpiresIn
	if expiresIn == "" {
		expiresIn = s.defaultExpiry
	}
	ttl, err := auth.ParseExpiry(expiresIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	expiresAt := s.now().Add(ttl)
	jti, signed, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	tokenID, err := uuid.Parse(jti)
	if err != nil {
		return nil, fmt.Errorf("parse token id: %w", err)
	}

	record := &model.Token{
		ID:         tokenID,
		UserID:     user.ID,
		Token:      signed,
		Type:       tokenType,
		IsActive:   true,
		ExpiresAt:  expiresAt,
		UserAgent:  opts.UserAgent,
		IPAddress:  opts.IPAddress,
		DeviceInfo: opts.DeviceInfo,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	s.recorder.Record(ctx, model.AuthEvent{
		Event:     model.EventTokenCreated,
		UserID:    &user.ID,
		TokenID:   &record.ID,
		IPAddress: opts.IPAddress,
		UserAgent: opts.UserAgent,
		Metadata:  metadata(map[string]any{"type": tokenType, "expires_in": expiresIn}),
	})
	s.metrics.RecordTokenIssued(string(tokenType))

	return &IssuedToken{ID: record.ID, Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks a presented credential against its stored record.
func (s *tokenService) ValidateToken(ctx context.Context, token string, opts ...ValidateOption) (*ValidationResult, error) {
	o := validateOptions{requireActive: true}
	for _, opt := range opts {
		opt(&o)
	}

	record, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.invalid(metrics.ResultNotFound, ReasonTokenNotFound), nil
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	// The stored row decides expiry; the signature only has to be ours and name the same user.
	claims, err := s.jwt.VerifySignature(token)
	if err != nil {
		return s.invalid(metrics.ResultBadSignature, ReasonInvalidSignature), nil
	}
	if sub, err := claims.UserID(); err != nil || sub != record.UserID {
		return s.invalid(metrics.ResultBadSignature, ReasonInvalidSignature), nil
	}

	if o.requireActive && !record.IsActive {
		return s.invalid(metrics.ResultInactive, ReasonTokenInactive), nil
	}
	if !o.allowExpired && record.Expired(s.now()) {
		return s.invalid(metrics.ResultExpired, ReasonTokenExpired), nil
	}

	user := record.User
	if user == nil {
		return s.invalid(metrics.ResultNotFound, ReasonTokenNotFound), nil
	}
	if !user.IsActive {
		return s.invalid(metrics.ResultUserInactive, ReasonUserInactive), nil
	}

	roles, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	user.Roles = roles
	record.User = nil

	if o.updateLastUsed {
		s.recorder.Touch(record.ID)
	}
	s.metrics.RecordValidation(metrics.ResultValid)

	return &ValidationResult{Valid: true, User: user, Token: record}, nil
}

func (s *tokenService) invalid(result, reason string) *ValidationResult {
	s.metrics.RecordValidation(result)
	return &ValidationResult{Error: reason}
}

// Logout deactivates the token presented by the caller.
func (s *tokenService) Logout(ctx context.Context, token string) error {
	record, err := s.deactivate(ctx, token)
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, model.AuthEvent{
		Event:   model.EventLogout,
		UserID:  &record.UserID,
		TokenID: &record.ID,
	})
	s.metrics.RecordRevocations("logout", 1)
	return nil
}

// RevokeToken deactivates a token by its signed value.
func (s *tokenService) RevokeToken(ctx context.Context, token string) error {
	record, err := s.deactivate(ctx, token)
	if err != nil {
		return err
	}
	s.recordRevoked(ctx, record)
	return nil
}

// RevokeUserToken deactivates one of the user's own tokens by id.
// A token owned by someone else is reported as not found.
func (s *tokenService) RevokeUserToken(ctx context.Context, userID, tokenID uuid.UUID) error {
	record, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTokenNotFound
		}
		return fmt.Errorf("find token: %w", err)
	}
	if record.UserID != userID {
		return apperrors.ErrTokenNotFound
	}
	if err := s.tokens.Deactivate(ctx, record.ID); err != nil {
		return fmt.Errorf("deactivate token: %w", err)
	}
	s.recordRevoked(ctx, record)
	return nil
}

func (s *tokenService) recordRevoked(ctx context.Context, record *model.Token) {
	s.recorder.Record(ctx, model.AuthEvent{
		Event:   model.EventTokenRevoked,
		UserID:  &record.UserID,
		TokenID: &record.ID,
	})
	s.metrics.RecordRevocations("revoke", 1)
}

func (s *tokenService) deactivate(ctx context.Context, token string) (*model.Token, error) {
	record, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	if err := s.tokens.Deactivate(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("deactivate token: %w", err)
	}
	return record, nil
}

// RevokeAllUserTokens deactivates every active token of the user and returns how many changed.
func (s *tokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.tokens.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	s.recorder.Record(ctx, model.AuthEvent{
		Event:    model.EventTokenRevoked,
		UserID:   &userID,
		Metadata: metadata(map[string]any{"all": true, "count": n}),
	})
	s.metrics.RecordRevocations("revoke_all", n)
	return n, nil
}

// CleanupExpiredTokens deletes tokens that are both expired and inactive.
func (s *tokenService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpiredInactive(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", err)
	}
	if n > 0 {
		s.recorder.Record(ctx, model.AuthEvent{
			Event:    model.EventTokenExpired,
			Metadata: metadata(map[string]any{"deleted": n}),
		})
	}
	s.metrics.RecordCleanup(n)
	s.log.Info("expired tokens cleaned up", "deleted", n)
	return n, nil
}

// GetUserTokens lists the user's sessions, newest first.
func (s *tokenService) GetUserTokens(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]model.Token, error) {
	tokens, err := s.tokens.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}
