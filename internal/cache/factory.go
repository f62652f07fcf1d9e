// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string
	// Prefix is the Redis key prefix.
	Prefix     string
	DefaultTTL time.Duration
	// MaxSize bounds the memory backend (0 = unlimited).
	MaxSize         int
	CleanupInterval time.Duration
	// FallbackToMemory keeps the service running when Redis is unreachable.
	FallbackToMemory bool
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:           DefaultPrefix,
		DefaultTTL:       time.Hour,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
}

// Info describes the backend NewCache picked.
type Info struct {
	Backend  string // "memory" or "redis"
	Fallback bool   // Redis was requested but memory is in use
	Error    error  // Redis connection error when Fallback is set
}

// NewCache creates the Redis backend when a URL is configured and the
// memory backend otherwise.
func NewCache(cfg Config) (Cacher, Info, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			return rc, Info{Backend: "redis"}, nil
		}
		if !cfg.FallbackToMemory {
			return nil, Info{}, err
		}
		slog.Warn("redis unavailable, using memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return newMemory(cfg), Info{Backend: "memory", Fallback: true, Error: err}, nil
	}
	return newMemory(cfg), Info{Backend: "memory"}, nil
}

func newMemory(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL hides the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	return u.Redacted()
}
