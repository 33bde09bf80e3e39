package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"authcore/internal/auth"
	"authcore/internal/config"
	"authcore/internal/handler"
	"authcore/internal/logger"
	"authcore/internal/metrics"
	"authcore/internal/middleware"
	"authcore/internal/service"
)

// Deps are the handlers and collaborators the routes need.
type Deps struct {
	Logger    *logger.Logger
	Tokens    service.TokenService
	RPC       *handler.RPCHandler
	OAuth     *handler.OAuthHandler
	Users     *handler.UserHandler
	Gatherer  prometheus.Gatherer
	HealthFns []func(c echo.Context) error
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, d Deps) {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Session(middleware.SessionConfig{
		Tokens:     d.Tokens,
		CookieName: cfg.CookieName,
		Logger:     d.Logger,
	}))

	// Add validator
	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		for _, check := range d.HealthFns {
			if err := check(c); err != nil {
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Procedure calls
	rpc := e.Group("/trpc")
	rpc.GET("/:name", d.RPC.Query)
	rpc.POST("/:name", d.RPC.Mutation)

	// Browser sign-in flow
	authGroup := e.Group("/auth", middleware.RateLimit(middleware.RateLimitConfig{Rate: cfg.AuthRateLimit}))
	authGroup.GET("/providers", d.OAuth.Providers)
	authGroup.GET("/status", d.OAuth.Status)
	authGroup.GET("/logout", d.OAuth.Logout)
	authGroup.GET("/:provider", d.OAuth.Login)
	authGroup.GET("/:provider/callback", d.OAuth.Callback)

	// User administration
	users := e.Group("/api/users", middleware.RequireMinRole(auth.RoleAdmin))
	users.GET("", d.Users.ListUsers)
	users.GET("/:id", d.Users.GetUser)
	users.PUT("/:id/active", d.Users.SetActive)
	users.DELETE("/:id", d.Users.DeleteUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator used for request bodies and procedure inputs.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
