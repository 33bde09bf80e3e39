// Package middleware holds the echo middleware shared by every route group.
package middleware

import (
	"errors"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"authcore/internal/auth"
	"authcore/internal/logger"
	"authcore/internal/service"
)

// ContextKey is the echo context key holding the *auth.Context of a signed-in request.
const ContextKey = "auth"

// DefaultCookieName is the cookie read when no Authorization header is sent.
const DefaultCookieName = "auth-token"

// SessionConfig configures Session.
type SessionConfig struct {
	Tokens     service.TokenService
	CookieName string
	Logger     *logger.Logger
}

// Session resolves the bearer credential of each request into an auth.Context.
// Authentication is optional here: a missing, invalid or unverifiable credential
// lets the request through anonymously and each procedure decides what it needs.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	log := cfg.Logger

	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + cfg.CookieName,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return nil, errors.New("empty credential")
			}
			req := c.Request()
			result, err := cfg.Tokens.ValidateToken(req.Context(), raw, service.UpdateLastUsed())
			if err != nil {
				log.Warn("session validation failed", "path", req.URL.Path, "error", err)
				return nil, err
			}
			if !result.Valid {
				return nil, errors.New(result.Error)
			}
			return &auth.Context{
				User:      result.User,
				Token:     result.Token,
				IPAddress: c.RealIP(),
				UserAgent: req.UserAgent(),
			}, nil
		},
		SuccessHandler: func(c echo.Context) {
			ac, ok := c.Get(ContextKey).(*auth.Context)
			if !ok {
				return
			}
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithContext(req.Context(), ac)))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

// AuthContext returns the session of the request, or nil when it is anonymous.
func AuthContext(c echo.Context) *auth.Context {
	if ac, ok := c.Get(ContextKey).(*auth.Context); ok {
		return ac
	}
	return auth.FromContext(c.Request().Context())
}
