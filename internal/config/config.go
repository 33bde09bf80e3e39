package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from environment variables
// and an optional config.yaml.
type Config struct {
	ServerPort      string
	Environment     string
	LogMode         string
	DBDriver        string
	DatabaseDSN     string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	JWTSecret       string
	TokenExpiresIn  string
	CookieName      string
	FrontendURL     string
	BackendURL      string
	CleanupInterval time.Duration
	AuthRateLimit   float64
	SwaggerHost     string

	Google  OAuthClient
	GitHub  OAuthClient
	Discord OAuthClient
}

// OAuthClient holds the client credentials of one identity provider.
// A provider without a client id is listed but inactive.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether the client has credentials.
func (c OAuthClient) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Production reports whether the app runs with production cookie settings.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "4000")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("database_dsn", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("jwt_secret", "change-me")
	v.SetDefault("token_expires_in", "7d")
	v.SetDefault("auth_cookie_name", "auth-token")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("backend_url", "http://localhost:4000")
	v.SetDefault("cleanup_interval", time.Hour)
	v.SetDefault("auth_rate_limit", 20.0)
	v.SetDefault("swagger_host", "")
	for _, p := range []string{"google", "github", "discord"} {
		v.SetDefault(p+"_client_id", "")
		v.SetDefault(p+"_client_secret", "")
	}
}

// New returns a viper instance reading env vars (SERVER_PORT, JWT_SECRET, ...) and config.yaml.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// A missing config file is fine; env and defaults still apply.
	_ = v.ReadInConfig()
	return v
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return FromViper(New())
}

// FromViper builds Config from an already prepared viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:      v.GetString("server_port"),
		Environment:     v.GetString("app_env"),
		LogMode:         v.GetString("log_mode"),
		DBDriver:        v.GetString("db_driver"),
		DatabaseDSN:     v.GetString("database_dsn"),
		RedisAddr:       v.GetString("redis_addr"),
		RedisDB:         v.GetInt("redis_db"),
		RedisPass:       v.GetString("redis_password"),
		JWTSecret:       v.GetString("jwt_secret"),
		TokenExpiresIn:  v.GetString("token_expires_in"),
		CookieName:      v.GetString("auth_cookie_name"),
		FrontendURL:     strings.TrimRight(v.GetString("frontend_url"), "/"),
		BackendURL:      strings.TrimRight(v.GetString("backend_url"), "/"),
		CleanupInterval: v.GetDuration("cleanup_interval"),
		AuthRateLimit:   v.GetFloat64("auth_rate_limit"),
		SwaggerHost:     v.GetString("swagger_host"),
		Google: OAuthClient{
			ClientID:     v.GetString("google_client_id"),
			ClientSecret: v.GetString("google_client_secret"),
		},
		GitHub: OAuthClient{
			ClientID:     v.GetString("github_client_id"),
			ClientSecret: v.GetString("github_client_secret"),
		},
		Discord: OAuthClient{
			ClientID:     v.GetString("discord_client_id"),
			ClientSecret: v.GetString("discord_client_secret"),
		},
	}
}
