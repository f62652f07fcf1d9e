// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// ScheduleOff disables the integrity audit.
const ScheduleOff = "off"

// MaxAutocompleteLimit caps OCMS_AUTOCOMPLETE_LIMIT.
const MaxAutocompleteLimit = 100

var (
	supportedDrivers = []string{"sqlite", "sqlite3", "mysql"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"OCMS_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"OCMS_DB_DSN" envDefault:"./data/taxonomy.db"`
	ServerHost string `env:"OCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OCMS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel   string `env:"OCMS_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"OCMS_REDIS_URL"`                           // Optional Redis URL for shared tree caching
	CachePrefix  string `env:"OCMS_CACHE_PREFIX" envDefault:"taxonomy:"` // Redis key prefix
	CacheTTL     int    `env:"OCMS_CACHE_TTL" envDefault:"3600"`         // Tree cache TTL in seconds
	CacheMaxSize int    `env:"OCMS_CACHE_MAX_SIZE" envDefault:"10000"`   // Max memory cache entries

	// Taxonomy
	AutocompleteLimit int    `env:"OCMS_AUTOCOMPLETE_LIMIT" envDefault:"10"`
	IntegritySchedule string `env:"OCMS_INTEGRITY_SCHEDULE" envDefault:"@hourly"` // cron spec or "off"
	RootLabel         string `env:"OCMS_ROOT_LABEL" envDefault:"Categories"`

	// Event log
	EventRetentionDays int `env:"OCMS_EVENT_RETENTION_DAYS" envDefault:"30"` // 0 keeps events forever

	// API rate limiting per actor
	APIRateLimit float64 `env:"OCMS_API_RATE_LIMIT" envDefault:"10"` // requests per second
	APIRateBurst int     `env:"OCMS_API_RATE_BURST" envDefault:"20"`

	// Seeding configuration
	DoSeed bool `env:"OCMS_DO_SEED" envDefault:"false"` // Create the tree root when missing
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// IntegrityAuditEnabled reports whether the integrity audit is scheduled.
func (c Config) IntegrityAuditEnabled() bool {
	return c.IntegritySchedule != ScheduleOff
}

// EventRetention returns how long event log entries are kept, 0 for forever.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if !slices.Contains(supportedDrivers, c.DBDriver) {
		return fmt.Errorf("OCMS_DB_DRIVER must be one of %v, got %q", supportedDrivers, c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("OCMS_DB_DSN must not be empty")
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("OCMS_LOG_LEVEL must be one of %v, got %q", logLevels, c.LogLevel)
	}
	if c.AutocompleteLimit < 1 || c.AutocompleteLimit > MaxAutocompleteLimit {
		return fmt.Errorf("OCMS_AUTOCOMPLETE_LIMIT must be between 1 and %d, got %d",
			MaxAutocompleteLimit, c.AutocompleteLimit)
	}
	if c.IntegrityAuditEnabled() {
		if _, err := cron.ParseStandard(c.IntegritySchedule); err != nil {
			return fmt.Errorf("OCMS_INTEGRITY_SCHEDULE %q: %w", c.IntegritySchedule, err)
		}
	}
	if c.APIRateLimit <= 0 || c.APIRateBurst < 1 {
		return fmt.Errorf("OCMS_API_RATE_LIMIT and OCMS_API_RATE_BURST must be positive")
	}
	if c.EventRetentionDays < 0 {
		return fmt.Errorf("OCMS_EVENT_RETENTION_DAYS must not be negative, got %d", c.EventRetentionDays)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("OCMS_CACHE_TTL must not be negative, got %d", c.CacheTTL)
	}
	return nil
}
