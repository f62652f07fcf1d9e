// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, "sqlite")
	}
	if cfg.DBDSN != "./data/taxonomy.db" {
		t.Errorf("DBDSN = %q, want %q", cfg.DBDSN, "./data/taxonomy.db")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "localhost:8080")
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment by default")
	}
	if cfg.AutocompleteLimit != 10 {
		t.Errorf("AutocompleteLimit = %d, want 10", cfg.AutocompleteLimit)
	}
	if cfg.IntegritySchedule != "@hourly" || !cfg.IntegrityAuditEnabled() {
		t.Errorf("IntegritySchedule = %q, want enabled @hourly", cfg.IntegritySchedule)
	}
	if cfg.CacheTTLDuration() != time.Hour {
		t.Errorf("CacheTTLDuration() = %v, want 1h", cfg.CacheTTLDuration())
	}
	if cfg.CachePrefix != "taxonomy:" {
		t.Errorf("CachePrefix = %q", cfg.CachePrefix)
	}
	if cfg.UseRedisCache() {
		t.Error("expected no Redis by default")
	}
	if cfg.EventRetention() != 30*24*time.Hour {
		t.Errorf("EventRetention() = %v, want 720h", cfg.EventRetention())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("OCMS_DB_DRIVER", "mysql")
	t.Setenv("OCMS_DB_DSN", "user:pass@tcp(db:3306)/taxonomy?parseTime=true")
	t.Setenv("OCMS_SERVER_HOST", "0.0.0.0")
	t.Setenv("OCMS_SERVER_PORT", "3000")
	t.Setenv("OCMS_ENV", "production")
	t.Setenv("OCMS_LOG_LEVEL", "debug")
	t.Setenv("OCMS_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OCMS_AUTOCOMPLETE_LIMIT", "25")
	t.Setenv("OCMS_INTEGRITY_SCHEDULE", "off")
	t.Setenv("OCMS_API_RATE_LIMIT", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != "mysql" {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("expected production environment")
	}
	if !cfg.UseRedisCache() {
		t.Error("expected Redis cache to be enabled")
	}
	if cfg.AutocompleteLimit != 25 {
		t.Errorf("AutocompleteLimit = %d", cfg.AutocompleteLimit)
	}
	if cfg.IntegrityAuditEnabled() {
		t.Error("expected integrity audit to be disabled")
	}
	if cfg.APIRateLimit != 2.5 {
		t.Errorf("APIRateLimit = %v", cfg.APIRateLimit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"driver", "OCMS_DB_DRIVER", "postgres", "OCMS_DB_DRIVER"},
		{"log level", "OCMS_LOG_LEVEL", "verbose", "OCMS_LOG_LEVEL"},
		{"limit zero", "OCMS_AUTOCOMPLETE_LIMIT", "0", "OCMS_AUTOCOMPLETE_LIMIT"},
		{"limit too high", "OCMS_AUTOCOMPLETE_LIMIT", "1000", "OCMS_AUTOCOMPLETE_LIMIT"},
		{"schedule", "OCMS_INTEGRITY_SCHEDULE", "every now and then", "OCMS_INTEGRITY_SCHEDULE"},
		{"rate", "OCMS_API_RATE_LIMIT", "0", "OCMS_API_RATE_LIMIT"},
		{"retention", "OCMS_EVENT_RETENTION_DAYS", "-1", "OCMS_EVENT_RETENTION_DAYS"},
		{"port", "OCMS_SERVER_PORT", "not-a-number", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
