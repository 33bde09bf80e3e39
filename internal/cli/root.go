// Package cli implements the authcore-admin command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"authcore/internal/auth"
	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/logger"
	"authcore/internal/repository"
	"authcore/internal/service"
)

// env holds what a command needs once the database is open.
type env struct {
	db       *gorm.DB
	users    service.UserService
	roles    service.RoleService
	tokens   service.TokenService
	events   repository.EventRepository
	recorder *service.Recorder
	ownsDB   bool
}

func (e *env) close() {
	e.recorder.Close()
	if e.ownsDB {
		if sqlDB, err := e.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Option customizes the root command.
type Option func(*options)

type options struct {
	db *gorm.DB
	v  *viper.Viper
}

// WithDB makes every command use gdb instead of opening the configured database.
func WithDB(gdb *gorm.DB) Option {
	return func(o *options) { o.db = gdb }
}

// WithViper replaces the configuration source.
func WithViper(v *viper.Viper) Option {
	return func(o *options) { o.v = v }
}

// NewRootCmd builds the admin command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.v == nil {
		o.v = config.New()
	}

	root := &cobra.Command{
		Use:           "authcore-admin",
		Short:         "Administer auth core users, roles and tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("db_driver", o.v.GetString("db_driver"), "Database driver: mysql, postgres or sqlite")
	root.PersistentFlags().String("database_dsn", o.v.GetString("database_dsn"), "Database connection string")
	root.PersistentFlags().Bool("migrate", false, "Create or update the schema before running")
	_ = o.v.BindPFlag("db_driver", root.PersistentFlags().Lookup("db_driver"))
	_ = o.v.BindPFlag("database_dsn", root.PersistentFlags().Lookup("database_dsn"))
	_ = o.v.BindPFlag("migrate", root.PersistentFlags().Lookup("migrate"))

	r := &runner{o: o}
	root.AddCommand(
		newRolesCmd(r),
		newGrantCmd(r),
		newMakeAdminCmd(r),
		newRevokeRoleCmd(r),
		newUsersCmd(r),
		newSetActiveCmd(r, "activate", true),
		newSetActiveCmd(r, "deactivate", false),
		newRevokeTokensCmd(r),
		newCleanupCmd(r),
		newEventsCmd(r),
	)
	return root
}

type runner struct {
	o *options
}

// wrap opens the environment for one command run and flushes it afterwards, failed or not.
func (r *runner) wrap(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(r.o)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e, args)
	}
}

func openEnv(o *options) (*env, error) {
	gdb := o.db
	owns := false
	if gdb == nil {
		var err error
		gdb, err = db.Open(o.v.GetString("db_driver"), o.v.GetString("database_dsn"))
		if err != nil {
			return nil, fmt.Errorf("database init: %w", err)
		}
		owns = true
	}
	if o.v.GetBool("migrate") {
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
	}

	log := logger.Nop()
	userRepo := repository.NewUserRepository(gdb)
	tokenRepo := repository.NewTokenRepository(gdb)
	roleRepo := repository.NewRoleRepository(gdb)
	eventRepo := repository.NewEventRepository(gdb)
	recorder := service.NewRecorder(eventRepo, tokenRepo, log)

	return &env{
		db:     gdb,
		users:  service.NewUserService(userRepo, roleRepo, nil),
		roles:  service.NewRoleService(userRepo, roleRepo, recorder, log),
		tokens: service.NewTokenService(service.TokenServiceConfig{
			Users:         userRepo,
			Tokens:        tokenRepo,
			Roles:         roleRepo,
			JWT:           auth.NewJWTService(o.v.GetString("jwt_secret")),
			Recorder:      recorder,
			Logger:        log,
			DefaultExpiry: o.v.GetString("token_expires_in"),
		}),
		events:   eventRepo,
		recorder: recorder,
		ownsDB:   owns,
	}, nil
}

// Execute runs the admin command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
