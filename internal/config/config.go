// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Note resolution modes for the request router.
const (
	// ResolveModeHTTP calls the app's own /api endpoints, forwarding the session.
	ResolveModeHTTP = "http"
	// ResolveModeDirect calls the note service in-process.
	ResolveModeDirect = "direct"
)

// ErrInvalidConfig is returned when a variable has an unsupported value.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Public origin of the app. The router's HTTP resolver calls its API here.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis), used for action rate limiting
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Identity provider (GoTrue-compatible)
	IdentityURL       string        `env:"IDENTITY_URL,required,notEmpty"`
	IdentityPublicKey string        `env:"IDENTITY_PUBLIC_KEY,required,notEmpty"`
	IdentityTimeout   time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"10s"`

	// Request router
	RouterResolveTimeout time.Duration `env:"ROUTER_RESOLVE_TIMEOUT" envDefault:"3s"`
	RouterResolveMode    string        `env:"ROUTER_RESOLVE_MODE" envDefault:"http"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting of login, sign-up and logout per client IP
	RateLimitActionsEnabled bool    `env:"RATE_LIMIT_ACTIONS_ENABLED" envDefault:"true"`
	RateLimitActionsRPS     float64 `env:"RATE_LIMIT_ACTIONS_RPS" envDefault:"0.2"`
	RateLimitActionsBurst   int     `env:"RATE_LIMIT_ACTIONS_BURST" envDefault:"5"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
// Production enables Secure cookies and HSTS.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.AppEnv {
	case "development", "production", "test":
	default:
		return fmt.Errorf("%w: APP_ENV %q", ErrInvalidConfig, c.AppEnv)
	}
	switch c.RouterResolveMode {
	case ResolveModeHTTP, ResolveModeDirect:
	default:
		return fmt.Errorf("%w: ROUTER_RESOLVE_MODE %q (want http or direct)", ErrInvalidConfig, c.RouterResolveMode)
	}
	switch c.LogFormat {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("%w: LOG_FORMAT %q (want json, text or pretty)", ErrInvalidConfig, c.LogFormat)
	}
	if c.RouterResolveTimeout <= 0 {
		return fmt.Errorf("%w: ROUTER_RESOLVE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.RateLimitActionsEnabled && (c.RateLimitActionsRPS <= 0 || c.RateLimitActionsBurst <= 0) {
		return fmt.Errorf("%w: action rate limit needs positive RPS and burst", ErrInvalidConfig)
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
