// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, http.StatusBadRequest, "validation_error", "bad input", map[string]string{"label": "required"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp APIError
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "validation_error" {
		t.Errorf("Code = %q, want validation_error", resp.Error.Code)
	}
	if resp.Error.Details["label"] != "required" {
		t.Errorf("Details = %v", resp.Error.Details)
	}
}

func TestLimiterCache(t *testing.T) {
	lc := newLimiterCache[string](1, 1)

	a := lc.get("a")
	if lc.get("a") != a {
		t.Error("get should return the same limiter for the same key")
	}
	lc.get("b")
	if lc.size() != 2 {
		t.Errorf("size = %d, want 2", lc.size())
	}

	if lc.clearIfExceeds(5) {
		t.Error("clearIfExceeds should not clear below the limit")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("clearIfExceeds should clear above the limit")
	}
	if lc.size() != 0 {
		t.Errorf("size after clear = %d, want 0", lc.size())
	}
}

func TestRateLimiterPerActor(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := Actor(rl.Middleware()(simpleOKHandler))

	send := func(actor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/categories/root", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if actor != "" {
			req.Header.Set(ActorHeader, actor)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := range 2 {
		if code := send("alice"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Errorf("third alice request: status = %d, want 429", code)
	}

	// Other actors and anonymous callers have their own buckets.
	if code := send("bob"); code != http.StatusOK {
		t.Errorf("bob: status = %d, want 200", code)
	}
	if code := send(""); code != http.StatusOK {
		t.Errorf("anonymous: status = %d, want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"real ip", "1.1.1.1", "2.2.2.2", "3.3.3.3:80", "1.1.1.1"},
		{"forwarded chain", "", "2.2.2.2, 4.4.4.4", "3.3.3.3:80", "2.2.2.2"},
		{"remote addr", "", "", "3.3.3.3:80", "3.3.3.3"},
		{"remote addr without port", "", "", "3.3.3.3", "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
