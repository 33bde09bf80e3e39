package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"authcore/docs"
	"authcore/internal/auth"
	"authcore/internal/cache"
	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/handler"
	"authcore/internal/logger"
	"authcore/internal/metrics"
	"authcore/internal/provider"
	"authcore/internal/repository"
	"authcore/internal/router"
	"authcore/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Auth Core API
// @version 1.0
// @description OAuth sign-in, bearer token sessions and role administration.
// @host localhost:4000
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if _, err := auth.ParseExpiry(cfg.TokenExpiresIn); err != nil {
		return fmt.Errorf("token_expires_in: %w", err)
	}
	if cfg.Production() && cfg.JWTSecret == "change-me" {
		return errors.New("jwt_secret must be set in production")
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	accountRepo := repository.NewAccountRepository(gormDB)
	tokenRepo := repository.NewTokenRepository(gormDB)
	roleRepo := repository.NewRoleRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)

	recorder := service.NewRecorder(eventRepo, tokenRepo, log.With("component", "recorder"))
	defer recorder.Close()

	// Initialize services
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		Users:         userRepo,
		Tokens:        tokenRepo,
		Roles:         roleRepo,
		JWT:           auth.NewJWTService(cfg.JWTSecret),
		Recorder:      recorder,
		Metrics:       collector,
		Logger:        log.With("component", "tokens"),
		DefaultExpiry: cfg.TokenExpiresIn,
	})
	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:    userRepo,
		Accounts: accountRepo,
		Roles:    roleRepo,
		Tokens:   tokenService,
		Recorder: recorder,
		Metrics:  collector,
		Logger:   log.With("component", "auth"),
	})
	roleService := service.NewRoleService(userRepo, roleRepo, recorder, log.With("component", "roles"))
	userService := service.NewUserService(userRepo, roleRepo, cacheClient)

	providers := provider.NewRegistryFromConfig(cfg)
	if len(providers.Active()) == 0 {
		log.Warn("no identity provider configured")
	}

	// Initialize handlers
	procs := handler.NewAuthProcedures(handler.AuthProceduresConfig{
		Tokens:     tokenService,
		Auth:       authService,
		Roles:      roleService,
		Users:      userService,
		Providers:  providers,
		BackendURL: cfg.BackendURL,
	})
	rpcHandler := handler.NewRPCHandler(log.With("component", "rpc"), procs.Procedures()...)
	oauthHandler := handler.NewOAuthHandler(
		providers,
		auth.NewStateStore(cacheClient),
		authService,
		tokenService,
		handler.OAuthConfig{
			FrontendURL: cfg.FrontendURL,
			CookieName:  cfg.CookieName,
			Secure:      cfg.Production(),
		},
		log.With("component", "oauth"),
	)
	userHandler := handler.NewUserHandler(userService)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Deps{
		Logger:   log,
		Tokens:   tokenService,
		RPC:      rpcHandler,
		OAuth:    oauthHandler,
		Users:    userHandler,
		Gatherer: reg,
		HealthFns: []func(c echo.Context) error{
			func(c echo.Context) error {
				sqlDB, err := gormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(c.Request().Context())
			},
		},
	})

	if !cacheClient.Available(context.Background()) {
		log.Warn("redis unavailable, oauth state falls back to the cookie", "addr", cfg.RedisAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.ServerPort
		log.Info("listening", "addr", addr, "providers", providers.Active())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return service.NewTokenSweeper(tokenService, cfg.CleanupInterval, log.With("component", "sweeper")).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
