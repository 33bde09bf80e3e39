package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/logger"
	"authcore/internal/middleware"
	"authcore/internal/provider"
	"authcore/internal/service"
)

const (
	stateCookieName       = "oauth-state"
	defaultAuthCookieTTL  = 7 * 24 * time.Hour
	authFailedMessagePath = "/auth/error?message=Authentication%20failed"
)

var errStateMismatch = errors.New("oauth state mismatch")

// OAuthConfig configures the browser sign-in flow.
type OAuthConfig struct {
	FrontendURL string
	CookieName  string
	// CookieTTL is the lifetime of the auth cookie. Defaults to 7 days.
	CookieTTL time.Duration
	// Secure marks cookies Secure; enabled in production.
	Secure bool
}

// OAuthHandler runs the provider redirect and callback flow.
type OAuthHandler struct {
	providers *provider.Registry
	states    auth.StateStoreInterface
	auth      service.AuthService
	tokens    service.TokenService
	cfg       OAuthConfig
	log       *logger.Logger
}

// NewOAuthHandler creates the OAuth handler.
func NewOAuthHandler(providers *provider.Registry, states auth.StateStoreInterface, authSvc service.AuthService, tokens service.TokenService, cfg OAuthConfig, log *logger.Logger) *OAuthHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = middleware.DefaultCookieName
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = defaultAuthCookieTTL
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if log == nil {
		log = logger.Nop()
	}
	return &OAuthHandler{
		providers: providers,
		states:    states,
		auth:      authSvc,
		tokens:    tokens,
		cfg:       cfg,
		log:       log,
	}
}

// ProvidersResponse lists the sign-in providers.
type ProvidersResponse struct {
	Providers []provider.Info `json:"providers"`
}

// Providers godoc
// @Summary List sign-in providers
// @Tags auth
// @Produce json
// @Success 200 {object} ProvidersResponse
// @Router /auth/providers [get]
func (h *OAuthHandler) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, ProvidersResponse{Providers: h.providers.List()})
}

// Status godoc
// @Summary Current authentication state
// @Tags auth
// @Produce json
// @Success 200 {object} AuthStatus
// @Security BearerAuth
// @Router /auth/status [get]
func (h *OAuthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, newAuthStatus(middleware.AuthContext(c), h.providers))
}

// Login godoc
// @Summary Start provider sign-in
// @Tags auth
// @Param provider path string true "Provider name" Enums(google, github, discord, facebook, twitter, apple)
// @Param returnTo query string false "Relative path to open after sign-in"
// @Success 302
// @Failure 501 {object} errors.ErrorResponse
// @Router /auth/{provider} [get]
func (h *OAuthHandler) Login(c echo.Context) error {
	name := c.Param("provider")
	p, ok := h.providers.Get(name)
	if !ok {
		return c.JSON(http.StatusNotImplemented, apperrors.ErrorResponse{
			Error: fmt.Sprintf("%s authentication is not configured", name),
			Code:  "NOT_IMPLEMENTED",
		})
	}

	state := uuid.NewString()
	data := auth.StateData{Provider: name, ReturnTo: safeReturnPath(c.QueryParam("returnTo"))}
	if err := h.states.SaveState(c.Request().Context(), state, data, auth.StateTTL); err != nil {
		// The cookie alone still protects the callback.
		h.log.Warn("save oauth state failed", "provider", name, "error", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(auth.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

// Callback godoc
// @Summary Provider sign-in callback
// @Description Exchanges the code, signs the user in, sets the auth cookie and redirects to the frontend.
// @Tags auth
// @Param provider path string true "Provider name"
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by the login redirect"
// @Success 302
// @Router /auth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	name := c.Param("provider")
	log := h.log.With("provider", name)

	result, returnTo, err := h.completeSignIn(c, name)
	if err != nil {
		log.Warn("oauth callback failed", "error", err)
		return c.Redirect(http.StatusFound, h.cfg.FrontendURL+authFailedMessagePath)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cfg.CookieTTL.Seconds()),
		HttpOnly: false, // the frontend reads it
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	user, err := json.Marshal(newUserView(result.User))
	if err != nil {
		log.Error("encode user failed", "error", err)
		return c.Redirect(http.StatusFound, h.cfg.FrontendURL+authFailedMessagePath)
	}
	q := url.Values{}
	q.Set("token", result.Token)
	q.Set("user", string(user))
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}

	log.Info("user signed in", "user_id", result.User.ID.String(), "new_user", result.IsNewUser)
	return c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/auth/callback?"+q.Encode())
}

func (h *OAuthHandler) completeSignIn(c echo.Context, name string) (*service.AuthResult, string, error) {
	ctx := c.Request().Context()

	p, ok := h.providers.Get(name)
	if !ok {
		return nil, "", fmt.Errorf("provider %q is not configured", name)
	}
	if reason := c.QueryParam("error"); reason != "" {
		return nil, "", fmt.Errorf("provider returned %q", reason)
	}

	state := c.QueryParam("state")
	cookie, err := c.Cookie(stateCookieName)
	h.clearCookie(c, stateCookieName, "/auth", true)
	if err != nil || state == "" || cookie.Value != state {
		return nil, "", errStateMismatch
	}

	// A missing entry is accepted: the cookie matched and Redis may be down.
	data, err := h.states.ConsumeState(ctx, state)
	if err != nil {
		return nil, "", fmt.Errorf("consume state: %w", err)
	}
	var returnTo string
	if data != nil {
		if data.Provider != name {
			return nil, "", errStateMismatch
		}
		returnTo = data.ReturnTo
	}

	code := c.QueryParam("code")
	if code == "" {
		return nil, "", errors.New("missing authorization code")
	}
	profile, tokens, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("exchange: %w", err)
	}

	result, err := h.auth.AuthenticateWithProvider(ctx, profile, service.AuthenticateOptions{
		Tokens:    tokens,
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return nil, "", err
	}
	return result, returnTo, nil
}

// Logout godoc
// @Summary Sign out
// @Description Deactivates the current token, clears the auth cookie and redirects to the frontend.
// @Tags auth
// @Success 302
// @Security BearerAuth
// @Router /auth/logout [get]
func (h *OAuthHandler) Logout(c echo.Context) error {
	outcome := "success"
	if ac := middleware.AuthContext(c); ac != nil && ac.Token != nil {
		if err := h.tokens.Logout(c.Request().Context(), ac.Token.Token); err != nil {
			h.log.Error("logout failed", "user_id", ac.User.ID.String(), "error", err)
			outcome = "error"
		}
	}
	h.clearCookie(c, h.cfg.CookieName, "/", false)
	return c.Redirect(http.StatusFound, h.cfg.FrontendURL+"?logout="+outcome)
}

func (h *OAuthHandler) clearCookie(c echo.Context, name, path string, httpOnly bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeReturnPath keeps only same-site relative paths.
func safeReturnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	return p
}
