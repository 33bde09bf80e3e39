package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authcore/internal/auth"
	"authcore/internal/provider"
	"authcore/internal/service"
	"authcore/internal/testutil"
)

const authFailedURL = "http://app.test/auth/error?message=Authentication%20failed"

func (f *fixture) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOAuth_LoginUnknownProvider(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/auth/github")

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_IMPLEMENTED")
}

func TestOAuth_LoginRedirectsWithState(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/auth/google?returnTo=/settings")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.test", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cookie := findCookie(rec, stateCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, state, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	data, err := f.states.ConsumeState(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "google", data.Provider)
	assert.Equal(t, "/settings", data.ReturnTo)
}

func TestOAuth_CallbackSignsIn(t *testing.T) {
	f := newFixture(t)
	f.provider.profile = &provider.Profile{ID: "g-1", Email: "new@example.com", Name: "New", Provider: provider.Google}
	require.NoError(t, f.states.SaveState(context.Background(), "s1", auth.StateData{Provider: "google"}, auth.StateTTL))

	rec := f.get(t, "/auth/google/callback?code=abc&state=s1", &http.Cookie{Name: stateCookieName, Value: "s1"})

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.test", loc.Host)
	assert.Equal(t, "/auth/callback", loc.Path)

	token := loc.Query().Get("token")
	require.NotEmpty(t, token)
	var user UserView
	require.NoError(t, json.Unmarshal([]byte(loc.Query().Get("user")), &user))
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, []string{"USER"}, user.Roles)

	cookie := findCookie(rec, "auth-token")
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)

	result, err := f.tokens.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"abc"}, f.provider.codes)

	// Once the stored entry is consumed the matching cookie alone is accepted.
	rec = f.get(t, "/auth/google/callback?code=abc&state=s1", &http.Cookie{Name: stateCookieName, Value: "s1"})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/auth/callback")
}

func TestOAuth_CallbackFailures(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cookie *http.Cookie
		setup  func(t *testing.T, f *fixture)
	}{
		{
			name:   "missing state cookie",
			target: "/auth/google/callback?code=abc&state=s1",
		},
		{
			name:   "state mismatch",
			target: "/auth/google/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "other"},
		},
		{
			name:   "state issued for another provider",
			target: "/auth/google/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
			setup: func(t *testing.T, f *fixture) {
				_ = f.states.SaveState(context.Background(), "s1", auth.StateData{Provider: "github"}, auth.StateTTL)
			},
		},
		{
			name:   "provider error",
			target: "/auth/google/callback?error=access_denied&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
		},
		{
			name:   "exchange fails",
			target: "/auth/google/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
			setup:  func(t *testing.T, f *fixture) { f.provider.err = errors.New("invalid_grant") },
		},
		{
			name:   "profile without email",
			target: "/auth/google/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
			setup: func(t *testing.T, f *fixture) {
				f.provider.profile = &provider.Profile{ID: "g-2", Provider: provider.Google}
			},
		},
		{
			name:   "inactive user",
			target: "/auth/google/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
			setup: func(t *testing.T, f *fixture) {
				user := testutil.CreateUser(t, f.db, "inactive@example.com")
				testutil.Deactivate(t, f.db, user)
				f.provider.profile = &provider.Profile{ID: "g-3", Email: "inactive@example.com", Provider: provider.Google}
			},
		},
		{
			name:   "unknown provider",
			target: "/auth/apple/callback?code=abc&state=s1",
			cookie: &http.Cookie{Name: stateCookieName, Value: "s1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.profile = &provider.Profile{ID: "g-1", Email: "x@example.com", Provider: provider.Google}
			if tt.setup != nil {
				tt.setup(t, f)
			}
			var cookies []*http.Cookie
			if tt.cookie != nil {
				cookies = append(cookies, tt.cookie)
			}

			rec := f.get(t, tt.target, cookies...)

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, authFailedURL, rec.Header().Get("Location"))
			assert.Nil(t, findCookie(rec, "auth-token"))
		})
	}
}

func TestOAuth_StatusAndProviders(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, "status@example.com", "ADMIN")

	rec := f.get(t, "/auth/providers")
	require.Equal(t, http.StatusOK, rec.Code)
	var providers ProvidersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &providers))
	require.Len(t, providers.Providers, 6)
	active := 0
	for _, p := range providers.Providers {
		if p.IsActive {
			active++
			assert.Equal(t, provider.Google, p.Name)
		}
	}
	assert.Equal(t, 1, active)

	rec = f.get(t, "/auth/status", &http.Cookie{Name: "auth-token", Value: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var status AuthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.IsAuthenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, []string{"ADMIN"}, status.User.Roles)
}

func TestOAuth_Logout(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, "leaving@example.com")

	rec := f.get(t, "/auth/logout", &http.Cookie{Name: "auth-token", Value: token})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://app.test?logout=success", rec.Header().Get("Location"))
	cleared := findCookie(rec, "auth-token")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	result, err := f.tokens.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, service.ReasonTokenInactive, result.Error)

	// Anonymous logout still clears the cookie.
	rec = f.get(t, "/auth/logout")
	assert.Equal(t, "http://app.test?logout=success", rec.Header().Get("Location"))
}

func TestSafeReturnPath(t *testing.T) {
	assert.Equal(t, "/settings", safeReturnPath("/settings"))
	assert.Equal(t, "", safeReturnPath("https://evil.test"))
	assert.Equal(t, "", safeReturnPath("//evil.test"))
	assert.Equal(t, "", safeReturnPath(`/\evil.test`))
	assert.Equal(t, "", safeReturnPath(""))
}
