// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultSessionSecret signs sessions when OVOICE_SESSION_SECRET is unset.
// It is accepted in development only.
const DefaultSessionSecret = "default-secret-change-in-production"

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	DefaultSessionSecret,
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env           string `env:"OVOICE_ENV" envDefault:"development"`
	DBPath        string `env:"OVOICE_DB_PATH" envDefault:"./data/ovoice.db"`
	SessionSecret string `env:"OVOICE_SESSION_SECRET"`
	ServerHost    string `env:"OVOICE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OVOICE_SERVER_PORT" envDefault:"8080"`
	LogLevel      string `env:"OVOICE_LOG_LEVEL" envDefault:"info"`

	// Admin credential
	AdminPassword    string `env:"OVOICE_ADMIN_PASSWORD" envDefault:"12345678"` // Seed for the first stored credential
	RecoveryPassword string `env:"OVOICE_RECOVERY_PASSWORD"`                    // Optional emergency credential
	AllowRecovery    bool   `env:"OVOICE_ALLOW_RECOVERY" envDefault:"false"`    // Permit the recovery credential in production

	// Listing cache
	RedisURL    string `env:"OVOICE_REDIS_URL"`                        // Optional Redis URL for a shared cache
	CachePrefix string `env:"OVOICE_CACHE_PREFIX" envDefault:"ovoice:"` // Redis key prefix
	CacheTTL    int    `env:"OVOICE_CACHE_TTL" envDefault:"30"`         // Listing TTL in seconds, 0 disables caching

	// Public API
	CORSOrigins []string `env:"OVOICE_CORS_ORIGINS" envSeparator:","` // Allowed cross-origin callers
	SubmitRate  int      `env:"OVOICE_SUBMIT_RATE" envDefault:"10"`  // Submissions per minute per IP

	// Maintenance
	EventRetentionDays int `env:"OVOICE_EVENT_RETENTION_DAYS" envDefault:"30"` // Event log retention, 0 keeps everything

	// Seeding configuration
	DoSeed bool `env:"OVOICE_DO_SEED" envDefault:"false"` // Insert demo content into an empty database
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true for production deployments.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// CacheDuration returns the listing cache TTL.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetention returns how long event log entries are kept. Zero disables pruning.
func (c *Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// EffectiveSessionSecret returns the configured secret or the development default.
func (c Config) EffectiveSessionSecret() string {
	if c.SessionSecret == "" {
		return DefaultSessionSecret
	}
	return c.SessionSecret
}

// MinSessionSecretLength is the minimum length of a production session
// secret, matching the HMAC-SHA256 block output.
const MinSessionSecretLength = 32

// ErrRecoveryNotAllowed is returned when a recovery credential is configured
// in production without OVOICE_ALLOW_RECOVERY.
var ErrRecoveryNotAllowed = errors.New("OVOICE_RECOVERY_PASSWORD is set in production; " +
	"unset it or set OVOICE_ALLOW_RECOVERY=true")

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if cfg.EventRetentionDays < 0 {
		cfg.EventRetentionDays = 0
	}
	if cfg.SubmitRate < 1 {
		return nil, fmt.Errorf("OVOICE_SUBMIT_RATE must be positive, got %d", cfg.SubmitRate)
	}

	if cfg.IsProduction() {
		if err := validateProductionSecret(cfg.SessionSecret); err != nil {
			return nil, err
		}
		if cfg.RecoveryPassword != "" && !cfg.AllowRecovery {
			return nil, ErrRecoveryNotAllowed
		}
	} else if cfg.SessionSecret == "" {
		slog.Warn("OVOICE_SESSION_SECRET not set, signing sessions with the built-in development secret",
			"category", "config")
	}

	if cfg.RecoveryPassword != "" {
		slog.Warn("recovery credential enabled", "category", "config")
	}

	return cfg, nil
}

func validateProductionSecret(secret string) error {
	if len(secret) < MinSessionSecretLength {
		return fmt.Errorf("OVOICE_SESSION_SECRET must be at least %d bytes long in production, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(secret))
	}

	for _, weak := range knownWeakSecrets {
		if secret == weak {
			return errors.New("OVOICE_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(secret) {
		slog.Warn("OVOICE_SESSION_SECRET has low character diversity; "+
			"consider generating a random secret with: openssl rand -base64 32", "category", "config")
	}
	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
