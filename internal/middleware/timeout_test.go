// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutMiddlewareNormalRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("success"))
	})

	rr := executeRequest(Timeout(5*time.Second)(handler), http.MethodGet, "/")

	if rr.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if body := rr.Body.String(); body != "success" {
		t.Errorf("Body = %q, want %q", body, "success")
	}
}

func TestTimeoutMiddlewareSlowRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	rr := executeRequest(Timeout(50*time.Millisecond)(handler), http.MethodGet, "/")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var apiErr APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if apiErr.Error.Code != "timeout" {
		t.Errorf("Code = %q, want timeout", apiErr.Error.Code)
	}
}

func TestTimeoutWriterImplicitHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	tw := &timeoutWriter{ResponseWriter: rr}

	if _, err := tw.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	tw.WriteHeader(http.StatusTeapot)

	if rr.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !tw.wroteHeader {
		t.Error("wroteHeader should be set after Write")
	}
}

func TestTimeoutWriterAfterTimeout(t *testing.T) {
	rr := httptest.NewRecorder()
	tw := &timeoutWriter{ResponseWriter: rr, timedOut: true}

	_, err := tw.Write([]byte("late"))
	if !errors.Is(err, http.ErrHandlerTimeout) {
		t.Errorf("Write error = %v, want ErrHandlerTimeout", err)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", rr.Body.String())
	}
}
