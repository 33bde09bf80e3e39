package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"authcore/internal/model"
	"authcore/internal/testutil"
)

func TestUserRepository_CreateWithAccount(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	roles := NewRoleRepository(db)
	ctx := context.Background()

	user := &model.User{Email: "new@example.com", Name: "New"}
	account := &model.Account{Provider: "github", ProviderAccountID: "42"}
	require.NoError(t, users.CreateWithAccount(ctx, user, account, "USER"))

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, user.ID, account.UserID)

	got, err := roles.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, got)

	withAccounts, err := users.FindWithAccounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, withAccounts.Accounts, 1)
	assert.Equal(t, "github", withAccounts.Accounts[0].Provider)
}

func TestUserRepository_CreateWithAccountRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	first := &model.User{Email: "first@example.com"}
	require.NoError(t, users.CreateWithAccount(ctx, first, &model.Account{Provider: "google", ProviderAccountID: "dup"}, "USER"))

	second := &model.User{Email: "second@example.com"}
	err := users.CreateWithAccount(ctx, second, &model.Account{Provider: "google", ProviderAccountID: "dup"}, "USER")
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	_, err = users.FindByEmail(ctx, "second@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ListWithCounts(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	tokens := NewTokenRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "a@example.com", "USER")
	testutil.CreateUser(t, db, "b@example.com", "USER")
	require.NoError(t, tokens.Create(ctx, &model.Token{UserID: a.ID, Token: "t1", ExpiresAt: time.Now().Add(time.Hour)}))

	list, err := users.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byEmail := map[string]model.UserSummary{}
	for _, u := range list {
		byEmail[u.Email] = u
	}
	assert.Equal(t, int64(1), byEmail["a@example.com"].AccountsCount)
	assert.Equal(t, int64(1), byEmail["a@example.com"].TokensCount)
	assert.Equal(t, int64(0), byEmail["b@example.com"].TokensCount)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	accounts := NewAccountRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "gone@example.com", "USER", "ADMIN")
	require.NoError(t, users.Delete(ctx, u.ID))

	n, err := accounts.CountByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, users.Delete(ctx, u.ID), gorm.ErrRecordNotFound)
}

func TestUserRepository_SetActive(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "flip@example.com")
	require.NoError(t, users.SetActive(ctx, u.ID, false))

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, users.SetActive(ctx, uuid.New(), true), gorm.ErrRecordNotFound)
}

func TestAccountRepository_FindByProvider(t *testing.T) {
	db := testutil.NewDB(t)
	accounts := NewAccountRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "linked@example.com")
	acc := &model.Account{UserID: u.ID, Provider: "discord", ProviderAccountID: "d-1"}
	require.NoError(t, accounts.Create(ctx, acc))

	got, err := accounts.FindByProvider(ctx, "discord", "d-1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	require.NotNil(t, got.User)
	assert.Equal(t, "linked@example.com", got.User.Email)

	_, err = accounts.FindByProvider(ctx, "github", "d-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := &model.Account{UserID: u.ID, Provider: "discord", ProviderAccountID: "d-1"}
	assert.ErrorIs(t, accounts.Create(ctx, dup), gorm.ErrDuplicatedKey)
}

func TestTokenRepository_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	tokens := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	u := testutil.CreateUser(t, db, "tok@example.com")
	live := &model.Token{UserID: u.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}
	expiredActive := &model.Token{UserID: u.ID, Token: "expired-active", ExpiresAt: now.Add(-time.Hour)}
	expiredInactive := &model.Token{UserID: u.ID, Token: "expired-inactive", ExpiresAt: now.Add(-time.Hour)}
	for _, tok := range []*model.Token{live, expiredActive, expiredInactive} {
		require.NoError(t, tokens.Create(ctx, tok))
	}
	require.NoError(t, tokens.Deactivate(ctx, expiredInactive.ID))

	got, err := tokens.FindByToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, u.ID, got.User.ID)
	assert.True(t, got.IsActive)

	active, err := tokens.ListByUser(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	deleted, err := tokens.DeleteExpiredInactive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = tokens.FindByID(ctx, expiredActive.ID)
	assert.NoError(t, err)

	n, err := tokens.DeactivateAllForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = tokens.DeactivateAllForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenRepository_TouchLastUsed(t *testing.T) {
	db := testutil.NewDB(t)
	tokens := NewTokenRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "touch@example.com")
	tok := &model.Token{UserID: u.ID, Token: "touch", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, tokens.Create(ctx, tok))

	at := time.Now().Truncate(time.Second)
	require.NoError(t, tokens.TouchLastUsed(ctx, []uuid.UUID{tok.ID}, at))

	got, err := tokens.FindByID(ctx, tok.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, at.Equal(*got.LastUsedAt))
}

func TestRoleRepository_AssignIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	roles := NewRoleRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "role@example.com", "USER")

	added, err := roles.Assign(ctx, &model.UserRole{UserID: u.ID, Role: "ADMIN"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = roles.Assign(ctx, &model.UserRole{UserID: u.ID, Role: "ADMIN"})
	require.NoError(t, err)
	assert.False(t, added)

	got, err := roles.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "USER"}, got)

	removed, err := roles.Remove(ctx, u.ID, "ADMIN")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = roles.Remove(ctx, u.ID, "ADMIN")
	require.NoError(t, err)
	assert.False(t, removed)

	byUser, err := roles.ListByUsers(ctx, []uuid.UUID{u.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, byUser[u.ID])
}

func TestEventRepository_CreateBatchAndList(t *testing.T) {
	db := testutil.NewDB(t)
	events := NewEventRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "audit@example.com")
	batch := []model.AuthEvent{
		{Event: model.EventLoginSuccess, UserID: &u.ID, Provider: "google"},
		{Event: model.EventTokenCreated, UserID: &u.ID},
		{Event: model.EventLoginFailed, Provider: "github"},
	}
	require.NoError(t, events.CreateBatch(ctx, batch))
	require.NoError(t, events.CreateBatch(ctx, nil))

	all, err := events.ListRecent(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := events.ListRecent(ctx, &u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
