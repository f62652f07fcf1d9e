// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for the taxonomy API:
// actor identification, rate limiting and request timeouts.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyActor is the context key for the acting user's token.
const ContextKeyActor ContextKey = "actor"

// ActorHeader carries the opaque token of the user editing content.
const ActorHeader = "X-Actor-Token"

// Actor copies the X-Actor-Token header into the request context.
// Requests without the header pass through untouched.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(ActorHeader))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), token)))
	})
}

// WithActor returns a context carrying the actor token.
func WithActor(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, token)
}

// GetActor retrieves the actor token from the request context.
// Returns an empty string if no actor is in context.
func GetActor(r *http.Request) string {
	return ActorFromContext(r.Context())
}

// ActorFromContext retrieves the actor token from ctx.
func ActorFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ContextKeyActor).(string)
	return token
}
