package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authcore/internal/auth"
	"authcore/internal/model"
	"authcore/internal/service"
)

func TestRPC_AuthRequired(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"getCurrentUser", "getUserProfile", "getUserTokens", "getUserAccounts"} {
		code, resp := f.query(t, name, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, name)
		assert.Equal(t, "UNAUTHORIZED", resp.Code, name)
	}

	code, resp := f.mutate(t, "signOut", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
}

func TestRPC_RoutingErrors(t *testing.T) {
	f := newFixture(t)

	code, resp := f.query(t, "doesNotExist", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	// Mutations are not reachable through GET.
	code, resp = f.query(t, "signOut", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "METHOD_NOT_SUPPORTED", resp.Code)
}

func TestRPC_GetAuthStatus(t *testing.T) {
	f := newFixture(t)

	code, resp := f.query(t, "getAuthStatus", "", nil)
	require.Equal(t, http.StatusOK, code)
	status := decodeData[AuthStatus](t, resp)
	assert.False(t, status.IsAuthenticated)
	assert.Nil(t, status.User)
	assert.Len(t, status.AvailableProviders, 6)

	user, token := f.signIn(t, "status@example.com", "USER", "MANAGER")
	code, resp = f.query(t, "getAuthStatus", token, nil)
	require.Equal(t, http.StatusOK, code)
	status = decodeData[AuthStatus](t, resp)
	assert.True(t, status.IsAuthenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, user.ID, status.User.ID)
	assert.ElementsMatch(t, []string{"USER", "MANAGER"}, status.User.Roles)
}

func TestRPC_GetGoogleAuthURL(t *testing.T) {
	f := newFixture(t)

	code, resp := f.query(t, "getGoogleAuthUrl", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "http://api.test/auth/google", decodeData[string](t, resp))
}

func TestRPC_CurrentUserAndProfile(t *testing.T) {
	f := newFixture(t)
	user, token := f.signIn(t, "me@example.com", "USER")

	code, resp := f.query(t, "getCurrentUser", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decodeData[UserView](t, resp)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "me@example.com", me.Email)
	assert.Equal(t, []string{"USER"}, me.Roles)

	code, resp = f.query(t, "getUserProfile", token, nil)
	require.Equal(t, http.StatusOK, code)
	profile := decodeData[ProfileView](t, resp)
	assert.Equal(t, user.ID, profile.User.ID)
	require.Len(t, profile.Providers, 1)
	assert.Equal(t, "GOOGLE", profile.Providers[0].Provider)
}

func TestRPC_RoleChangeSeenOnNextRequest(t *testing.T) {
	f := newFixture(t)
	user, token := f.signIn(t, "promoted@example.com", "USER")

	code, _ := f.query(t, "getAllUsers", token, nil)
	require.Equal(t, http.StatusForbidden, code)

	require.NoError(t, f.roles.AssignRole(context.Background(), user.ID, "MANAGER", nil))

	code, _ = f.query(t, "getAllUsers", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRPC_GetAllUsers(t *testing.T) {
	f := newFixture(t)
	_, userToken := f.signIn(t, "plain@example.com", "USER")
	_, managerToken := f.signIn(t, "manager@example.com", "MANAGER")
	_, adminToken := f.signIn(t, "admin@example.com", "ADMIN")

	code, resp := f.query(t, "getAllUsers", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	code, resp = f.query(t, "getAllUsers", managerToken, map[string]int{"page": 1, "limit": 2})
	require.Equal(t, http.StatusOK, code)
	list := decodeData[UserList](t, resp)
	assert.Equal(t, int64(3), list.TotalCount)
	assert.Equal(t, 2, list.TotalPages)
	assert.Equal(t, 1, list.CurrentPage)
	assert.Len(t, list.Users, 2)
	for _, u := range list.Users {
		assert.Equal(t, int64(1), u.AccountsCount)
		assert.Equal(t, int64(1), u.TokensCount)
		assert.NotEmpty(t, u.Roles)
	}

	// ADMIN outranks MANAGER.
	code, _ = f.query(t, "getAllUsers", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = f.query(t, "getAllUsers", adminToken, map[string]int{"limit": 500})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", resp.Code)
}

func TestRPC_AssignAndRemoveRole(t *testing.T) {
	f := newFixture(t)
	target, _ := f.signIn(t, "target@example.com", "USER")
	_, managerToken := f.signIn(t, "manager@example.com", "MANAGER")
	_, adminToken := f.signIn(t, "admin@example.com", "ADMIN")
	input := map[string]string{"userId": target.ID.String(), "role": "MANAGER"}

	// A manager does not hold ADMIN, so the grant is refused.
	code, resp := f.mutate(t, "assignUserRole", managerToken, input)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	for i := 0; i < 2; i++ {
		code, resp = f.mutate(t, "assignUserRole", adminToken, input)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, decodeData[OperationResult](t, resp).Success)
	}
	roles, err := f.roles.GetUserRoles(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"MANAGER", "USER"}, roles)

	code, _ = f.mutate(t, "removeUserRole", adminToken, input)
	require.Equal(t, http.StatusOK, code)
	roles, err = f.roles.GetUserRoles(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, roles)

	code, resp = f.mutate(t, "assignUserRole", adminToken, map[string]string{"userId": target.ID.String(), "role": "OWNER"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", resp.Code)

	code, resp = f.mutate(t, "assignUserRole", adminToken, map[string]string{"userId": uuid.NewString(), "role": "USER"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestRPC_SignOut(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, "bye@example.com")

	code, resp := f.mutate(t, "signOut", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeData[OperationResult](t, resp).Success)

	code, _ = f.query(t, "getCurrentUser", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	result, err := f.tokens.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, service.ReasonTokenInactive, result.Error)
}

func TestRPC_Sessions(t *testing.T) {
	f := newFixture(t)
	user, token := f.signIn(t, "sessions@example.com")
	second, err := f.tokens.CreateToken(context.Background(), user.ID, service.CreateTokenOptions{UserAgent: "phone"})
	require.NoError(t, err)
	_, otherToken := f.signIn(t, "other@example.com")

	code, resp := f.query(t, "getUserTokens", token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decodeData[SessionList](t, resp)
	assert.Equal(t, 2, list.TotalCount)
	current := 0
	for _, s := range list.Tokens {
		if s.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)

	// Another user's token id is reported as not found.
	code, resp = f.mutate(t, "revokeToken", otherToken, map[string]string{"tokenId": second.ID.String()})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	code, _ = f.mutate(t, "revokeToken", token, map[string]string{"tokenId": second.ID.String()})
	require.Equal(t, http.StatusOK, code)

	code, resp = f.query(t, "getUserTokens", token, map[string]bool{"activeOnly": false})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decodeData[SessionList](t, resp).TotalCount)

	code, resp = f.query(t, "getUserTokens", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decodeData[SessionList](t, resp).TotalCount)

	code, resp = f.mutate(t, "revokeAllTokens", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decodeData[RevokeAllResult](t, resp).RevokedCount)

	code, _ = f.query(t, "getUserTokens", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRPC_Accounts(t *testing.T) {
	f := newFixture(t)
	user, token := f.signIn(t, "linked@example.com")

	code, resp := f.query(t, "getUserAccounts", token, nil)
	require.Equal(t, http.StatusOK, code)
	accounts := decodeData[[]AccountView](t, resp)
	require.Len(t, accounts, 1)
	assert.Equal(t, "google", accounts[0].Provider)
	assert.False(t, accounts[0].HasAccessToken)

	code, resp = f.mutate(t, "unlinkAccount", token, map[string]string{"accountId": accounts[0].ID.String()})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", resp.Code)

	second := &model.Account{UserID: user.ID, Provider: "github", ProviderAccountID: "gh-1"}
	require.NoError(t, f.db.Omit("User").Create(second).Error)

	code, resp = f.mutate(t, "unlinkAccount", token, map[string]string{"accountId": second.ID.String()})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeData[OperationResult](t, resp).Success)

	code, resp = f.mutate(t, "unlinkAccount", token, map[string]string{"accountId": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", resp.Code)
}

func TestRPC_CleanupExpiredTokens(t *testing.T) {
	f := newFixture(t)
	user, _ := f.signIn(t, "old@example.com")
	_, managerToken := f.signIn(t, "manager@example.com", "MANAGER")
	_, adminToken := f.signIn(t, "admin@example.com", "ADMIN")

	expired := &model.Token{
		UserID:    user.ID,
		Token:     "expired-" + uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.db.Omit("User").Create(expired).Error)
	require.NoError(t, f.db.Model(expired).Update("is_active", false).Error)

	code, _ := f.mutate(t, "cleanupExpiredTokens", managerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := f.mutate(t, "cleanupExpiredTokens", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decodeData[CleanupResult](t, resp).CleanedCount)
}

func TestNewRPCHandler_RejectsBadTable(t *testing.T) {
	noop := func(ctx context.Context, req *Request) (any, error) { return nil, nil }

	assert.Panics(t, func() {
		NewRPCHandler(nil,
			Procedure{Name: "a", Kind: KindQuery, Handle: noop},
			Procedure{Name: "a", Kind: KindMutation, Handle: noop},
		)
	})
	assert.Panics(t, func() {
		NewRPCHandler(nil, Procedure{Name: "b", Kind: "subscription", Handle: noop})
	})

	h := NewRPCHandler(nil, NewAuthProcedures(AuthProceduresConfig{}).Procedures()...)
	assert.Len(t, h.Names(), 15)
}

func TestProcedure_Authorize(t *testing.T) {
	ctxWith := func(roles ...string) *auth.Context {
		return &auth.Context{User: &model.User{ID: uuid.New(), Roles: roles}}
	}

	public := Procedure{Name: "p"}
	assert.NoError(t, public.authorize(nil))

	// A role policy implies authentication even without RequiresAuth.
	adminOnly := Procedure{Name: "a", AnyOf: []auth.Role{auth.RoleAdmin}}
	assert.ErrorContains(t, adminOnly.authorize(nil), "authentication required")
	assert.ErrorContains(t, adminOnly.authorize(ctxWith("MANAGER")), "insufficient role")
	assert.NoError(t, adminOnly.authorize(ctxWith("USER", "ADMIN")))

	managerUp := Procedure{Name: "m", MinRole: auth.RoleManager}
	assert.Error(t, managerUp.authorize(ctxWith("USER")))
	assert.Error(t, managerUp.authorize(ctxWith()))
	assert.NoError(t, managerUp.authorize(ctxWith("ADMIN")))
}
