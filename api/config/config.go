// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
)

// insecureDefault is the hardcoded fallback the original deployment used for
// both the encryption salt and the app secret when the environment was not
// set. It is a known weakness and is only honored behind
// ALLOW_INSECURE_DEFAULTS, for tests and local development.
const insecureDefault = "default"

type Config struct {
	Port        int    `default:"8080"`
	DatabaseURL string
	ModelDir    string `default:"models"`

	JWTSecret string
	TokenTTL  time.Duration `default:"168h"`

	EncryptionSalt string
	AppSecretKey   string

	// AllowInsecureDefaults permits running without ENCRYPTION_SALT and
	// APP_SECRET_KEY, falling back to the legacy hardcoded values. Never
	// enable in production.
	AllowInsecureDefaults bool

	LogLevel string `default:"info"`
}

// Load builds the configuration from environment variables, applying struct
// defaults first. Missing secrets are a startup failure unless insecure
// defaults are explicitly allowed.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT value %q", v)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.ModelDir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.EncryptionSalt = os.Getenv("ENCRYPTION_SALT")
	cfg.AppSecretKey = os.Getenv("APP_SECRET_KEY")
	if v := os.Getenv("ALLOW_INSECURE_DEFAULTS"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOW_INSECURE_DEFAULTS: %w", err)
		}
		cfg.AllowInsecureDefaults = allow
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.EncryptionSalt == "" {
		if !cfg.AllowInsecureDefaults {
			return nil, errors.New("ENCRYPTION_SALT is required (set ALLOW_INSECURE_DEFAULTS=true to use the legacy fallback)")
		}
		cfg.EncryptionSalt = insecureDefault
	}
	if cfg.AppSecretKey == "" {
		if !cfg.AllowInsecureDefaults {
			return nil, errors.New("APP_SECRET_KEY is required (set ALLOW_INSECURE_DEFAULTS=true to use the legacy fallback)")
		}
		cfg.AppSecretKey = insecureDefault
	}

	return cfg, nil
}

// UsesInsecureDefaults reports whether either secret fell back to the legacy
// hardcoded value, so startup can log a loud warning.
func (c *Config) UsesInsecureDefaults() bool {
	return c.EncryptionSalt == insecureDefault || c.AppSecretKey == insecureDefault
}
