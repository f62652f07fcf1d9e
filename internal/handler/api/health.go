// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"time"
)

// pinger is implemented by cache backends that can report liveness.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": timedCheck(func() error { return h.db.PingContext(ctx) }),
	}
	if p, ok := h.cache.(pinger); ok {
		checks["cache"] = timedCheck(func() error { return p.Ping(ctx) })
	}

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Checks:    checks,
	}
	code := http.StatusOK
	for _, c := range checks {
		if c.Status != "healthy" {
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	WriteJSON(w, code, status)
}

func timedCheck(fn func() error) Check {
	start := time.Now()
	if err := fn(); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}
