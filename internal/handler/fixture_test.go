package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"authcore/internal/auth"
	"authcore/internal/middleware"
	"authcore/internal/model"
	"authcore/internal/provider"
	"authcore/internal/repository"
	"authcore/internal/service"
	"authcore/internal/testutil"
)

type structValidator struct {
	v *validator.Validate
}

func (sv *structValidator) Validate(i interface{}) error {
	return sv.v.Struct(i)
}

type fixture struct {
	e        *echo.Echo
	db       *gorm.DB
	tokens   service.TokenService
	auth     service.AuthService
	roles    service.RoleService
	users    service.UserService
	states   *memoryStates
	provider *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	recorder := service.NewRecorder(repository.NewEventRepository(db), tokenRepo, nil)
	t.Cleanup(recorder.Close)

	f := &fixture{db: db, states: newMemoryStates(), provider: &fakeProvider{}}
	f.tokens = service.NewTokenService(service.TokenServiceConfig{
		Users:    userRepo,
		Tokens:   tokenRepo,
		Roles:    roleRepo,
		JWT:      auth.NewJWTService("handler-test-secret"),
		Recorder: recorder,
	})
	f.auth = service.NewAuthService(service.AuthServiceConfig{
		Users:    userRepo,
		Accounts: repository.NewAccountRepository(db),
		Roles:    roleRepo,
		Tokens:   f.tokens,
		Recorder: recorder,
	})
	f.roles = service.NewRoleService(userRepo, roleRepo, recorder, nil)
	f.users = service.NewUserService(userRepo, roleRepo, nil)

	registry := provider.NewRegistry(f.provider)
	procs := NewAuthProcedures(AuthProceduresConfig{
		Tokens:     f.tokens,
		Auth:       f.auth,
		Roles:      f.roles,
		Users:      f.users,
		Providers:  registry,
		BackendURL: "http://api.test",
	})
	rpc := NewRPCHandler(nil, procs.Procedures()...)
	oauth := NewOAuthHandler(registry, f.states, f.auth, f.tokens, OAuthConfig{FrontendURL: "http://app.test"}, nil)

	e := echo.New()
	e.Validator = &structValidator{v: validator.New(validator.WithRequiredStructEnabled())}
	e.Use(middleware.Session(middleware.SessionConfig{Tokens: f.tokens}))
	e.GET("/trpc/:name", rpc.Query)
	e.POST("/trpc/:name", rpc.Mutation)
	e.GET("/auth/providers", oauth.Providers)
	e.GET("/auth/status", oauth.Status)
	e.GET("/auth/logout", oauth.Logout)
	e.GET("/auth/:provider", oauth.Login)
	e.GET("/auth/:provider/callback", oauth.Callback)

	users := NewUserHandler(f.users)
	admin := e.Group("/api/users", middleware.RequireMinRole(auth.RoleAdmin))
	admin.GET("", users.ListUsers)
	admin.GET("/:id", users.GetUser)
	admin.PUT("/:id/active", users.SetActive)
	admin.DELETE("/:id", users.DeleteUser)
	f.e = e
	return f
}

// signIn creates a user with the given roles and returns it with a fresh token.
func (f *fixture) signIn(t *testing.T, email string, roles ...string) (*model.User, string) {
	t.Helper()
	user := testutil.CreateUser(t, f.db, email, roles...)
	issued, err := f.tokens.CreateToken(context.Background(), user.ID, service.CreateTokenOptions{})
	require.NoError(t, err)
	return user, issued.Token
}

type rpcResponse struct {
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (f *fixture) query(t *testing.T, name, token string, input any) (int, rpcResponse) {
	t.Helper()
	target := "/trpc/" + name
	if input != nil {
		raw, err := json.Marshal(input)
		require.NoError(t, err)
		target += "?input=" + url.QueryEscape(string(raw))
	}
	return f.do(t, httptest.NewRequest(http.MethodGet, target, nil), token)
}

func (f *fixture) mutate(t *testing.T, name, token string, input any) (int, rpcResponse) {
	t.Helper()
	body := ""
	if input != nil {
		raw, err := json.Marshal(input)
		require.NoError(t, err)
		body = string(raw)
	}
	req := httptest.NewRequest(http.MethodPost, "/trpc/"+name, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return f.do(t, req, token)
}

func (f *fixture) do(t *testing.T, req *http.Request, token string) (int, rpcResponse) {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func decodeData[T any](t *testing.T, resp rpcResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Result.Data, &out))
	return out
}

// memoryStates is an in-process StateStoreInterface.
type memoryStates struct {
	mu     sync.Mutex
	states map[string]auth.StateData
}

func newMemoryStates() *memoryStates {
	return &memoryStates{states: map[string]auth.StateData{}}
}

func (m *memoryStates) SaveState(ctx context.Context, state string, data auth.StateData, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = data
	return nil
}

func (m *memoryStates) ConsumeState(ctx context.Context, state string) (*auth.StateData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	return &data, nil
}

// fakeProvider signs everyone in as the configured profile.
type fakeProvider struct {
	profile *provider.Profile
	err     error
	codes   []string
}

func (p *fakeProvider) Type() provider.Type { return provider.Google }

func (p *fakeProvider) Scopes() []string { return []string{"openid", "email"} }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*provider.Profile, *provider.Tokens, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, nil, p.err
	}
	profile := *p.profile
	return &profile, &provider.Tokens{AccessToken: "provider-access-" + code}, nil
}
