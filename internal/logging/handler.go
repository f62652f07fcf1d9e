// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors notable log records
// into the database-backed event log.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/middleware"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// writeTimeout bounds a single event insert.
const writeTimeout = 5 * time.Second

// EventLogHandler wraps another handler and also writes records at or above
// its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level  // minimum level forwarded to the event log
	attrs   []slog.Attr // attributes added through WithAttrs
	group   string      // dotted group prefix for record attributes
}

// NewEventLogHandler creates a handler that forwards WARN and above.
func NewEventLogHandler(inner slog.Handler, queries *store.Queries) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, queries, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a handler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, queries *store.Queries, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: queries,
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeEvent(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	clone.group = h.group + name + "."
	return &clone
}

// qualify prefixes attribute keys with the current group.
func (h *EventLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + a.Key, Value: a.Value}
	}
	return out
}

// writeEvent inserts r into the event log. Failures are dropped: logging
// them would recurse into this handler.
func (h *EventLogHandler) writeEvent(ctx context.Context, r slog.Record) {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	var recordAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)
		return true
	})
	attrs = append(attrs, h.qualify(recordAttrs)...)

	actor := middleware.ActorFromContext(ctx)
	category := ""
	metadata := make(map[string]string, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case "category":
			category = a.Value.String()
		case "actor":
			if actor == "" {
				actor = a.Value.String()
			}
		default:
			metadata[a.Key] = a.Value.Resolve().String()
		}
	}
	if category == "" {
		category = inferCategory(r.Message)
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		encoded = []byte("{}")
	}

	// The request context may already be cancelled when an error is logged.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	_ = h.queries.CreateEvent(writeCtx, store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		Actor:     actor,
		Metadata:  string(encoded),
		CreatedAt: eventTime(r.Time),
	})
}

// eventLevel converts a slog.Level to an event level.
func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}

// inferCategory guesses the event category from the log message.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "integrity") || strings.Contains(msg, "audit"):
		return model.EventCategoryIntegrity
	case strings.Contains(msg, "import") || strings.Contains(msg, "export"):
		return model.EventCategoryTransfer
	case strings.Contains(msg, "cache") || strings.Contains(msg, "redis"):
		return model.EventCategoryCache
	case strings.Contains(msg, "link") || strings.Contains(msg, "content"):
		return model.EventCategoryLinks
	case strings.Contains(msg, "categor") || strings.Contains(msg, "tree") ||
		strings.Contains(msg, "root") || strings.Contains(msg, "label"):
		return model.EventCategoryTree
	default:
		return model.EventCategorySystem
	}
}
