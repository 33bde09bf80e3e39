package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"authcore/internal/auth"
	"authcore/internal/model"
	"authcore/internal/provider"
	"authcore/internal/repository"
	"authcore/internal/testutil"
)

const testSecret = "test-secret"

type harness struct {
	db       *gorm.DB
	users    repository.UserRepository
	accounts repository.AccountRepository
	tokenRep repository.TokenRepository
	roleRep  repository.RoleRepository
	events   repository.EventRepository
	recorder *Recorder
	tokens   TokenService
	auth     AuthService
	roles    RoleService
	userSvc  UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)

	h := &harness{
		db:       db,
		users:    repository.NewUserRepository(db),
		accounts: repository.NewAccountRepository(db),
		tokenRep: repository.NewTokenRepository(db),
		roleRep:  repository.NewRoleRepository(db),
		events:   repository.NewEventRepository(db),
	}
	h.recorder = NewRecorder(h.events, h.tokenRep, nil)
	t.Cleanup(h.recorder.Close)

	h.tokens = NewTokenService(TokenServiceConfig{
		Users:    h.users,
		Tokens:   h.tokenRep,
		Roles:    h.roleRep,
		JWT:      auth.NewJWTService(testSecret),
		Recorder: h.recorder,
	})
	h.auth = NewAuthService(AuthServiceConfig{
		Users:    h.users,
		Accounts: h.accounts,
		Roles:    h.roleRep,
		Tokens:   h.tokens,
		Recorder: h.recorder,
	})
	h.roles = NewRoleService(h.users, h.roleRep, h.recorder, nil)
	h.userSvc = NewUserService(h.users, h.roleRep, nil)
	return h
}

// eventKinds flushes the recorder and returns the stored event kinds.
func (h *harness) eventKinds(t *testing.T) []model.EventKind {
	t.Helper()
	h.recorder.Close()
	events, err := h.events.ListRecent(context.Background(), nil, 100)
	require.NoError(t, err)
	kinds := make([]model.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Event)
	}
	return kinds
}

func profile(p provider.Type, id, email string) *provider.Profile {
	return &provider.Profile{ID: id, Email: email, Name: "Person " + id, Provider: p}
}

func (h *harness) signIn(t *testing.T, email string) (*model.User, *IssuedToken) {
	t.Helper()
	user, _, err := h.auth.FindOrCreateUser(context.Background(), profile(provider.Google, uuid.NewString(), email), nil)
	require.NoError(t, err)
	issued, err := h.tokens.CreateToken(context.Background(), user.ID, CreateTokenOptions{})
	require.NoError(t, err)
	return user, issued
}
