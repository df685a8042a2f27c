package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"60s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	UserServiceURL     string        `envconfig:"USER_SERVICE_URL" default:"http://127.0.0.1:8081"`
	UserServiceTimeout time.Duration `envconfig:"USER_SERVICE_TIMEOUT" default:"30s"`
	SyncProbeTimeout   time.Duration `envconfig:"SYNC_PROBE_TIMEOUT" default:"5s"`

	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID" default:""`

	// PublicRoutes are reachable without a Principal; everything else is
	// protected. Matching is case-insensitive with separator-boundary
	// prefix semantics, so "oauth2" also covers "oauth2/google".
	PublicRoutes []string `envconfig:"PUBLIC_ROUTES" default:"login,register,about,oauth2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.UserServiceURL == "" {
		return nil, errors.New("user service url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
