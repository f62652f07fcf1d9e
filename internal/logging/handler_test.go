// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/middleware"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/testutil"
)

func newTestHandler(t *testing.T) (*EventLogHandler, *store.Queries, *bytes.Buffer) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	q := store.New(db, store.DialectSQLite)
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	return NewEventLogHandler(inner, q), q, &buf
}

func listEvents(t *testing.T, q *store.Queries) []model.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{Limit: 50})
	require.NoError(t, err)
	return events
}

func TestEventLogHandler_ErrorLevel(t *testing.T) {
	h, q, buf := newTestHandler(t)
	logger := slog.New(h)

	logger.Error("failed to attach category", "id", "c1", "parent", "p1")

	assert.Contains(t, buf.String(), "failed to attach category", "inner handler still writes")

	events := listEvents(t, q)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventLevelError, events[0].Level)
	assert.Equal(t, model.EventCategoryTree, events[0].Category)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[0].Metadata), &meta))
	assert.Equal(t, map[string]string{"id": "c1", "parent": "p1"}, meta)
}

func TestEventLogHandler_BelowThreshold(t *testing.T) {
	h, q, buf := newTestHandler(t)
	logger := slog.New(h)

	logger.Info("tree cache ready")
	logger.Debug("not printed")

	assert.Contains(t, buf.String(), "tree cache ready")
	assert.NotContains(t, buf.String(), "not printed")
	assert.Empty(t, listEvents(t, q))
}

func TestEventLogHandler_CategoryAndActor(t *testing.T) {
	h, q, _ := newTestHandler(t)
	logger := slog.New(h)

	ctx := middleware.WithActor(context.Background(), "editor-1")
	logger.WarnContext(ctx, "something odd", "category", model.EventCategoryCache)
	logger.Warn("sync skipped", "actor", "editor-2")

	events := listEvents(t, q)
	require.Len(t, events, 2)

	byMessage := map[string]model.Event{}
	for _, e := range events {
		byMessage[e.Message] = e
	}
	assert.Equal(t, model.EventCategoryCache, byMessage["something odd"].Category)
	assert.Equal(t, "editor-1", byMessage["something odd"].Actor)
	assert.Equal(t, "editor-2", byMessage["sync skipped"].Actor)
	assert.Equal(t, "{}", byMessage["sync skipped"].Metadata)
}

func TestEventLogHandler_WithAttrsAndGroup(t *testing.T) {
	h, q, _ := newTestHandler(t)
	logger := slog.New(h).With("component", "scheduler").WithGroup("audit")

	logger.Warn("integrity audit found problems", "problems", 2)

	events := listEvents(t, q)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryIntegrity, events[0].Category)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[0].Metadata), &meta))
	assert.Equal(t, "scheduler", meta["component"])
	assert.Equal(t, "2", meta["audit.problems"])
}

func TestEventLogHandler_CancelledContext(t *testing.T) {
	h, q, _ := newTestHandler(t)
	logger := slog.New(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger.ErrorContext(ctx, "request aborted")

	assert.Len(t, listEvents(t, q), 1)
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"integrity audit completed", model.EventCategoryIntegrity},
		{"import rejected entity", model.EventCategoryTransfer},
		{"redis unavailable, using memory cache", model.EventCategoryCache},
		{"failed to update links", model.EventCategoryLinks},
		{"failed to load category", model.EventCategoryTree},
		{"server error", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, inferCategory(tt.message))
		})
	}
}

func TestEventLevel(t *testing.T) {
	assert.Equal(t, model.EventLevelError, eventLevel(slog.LevelError))
	assert.Equal(t, model.EventLevelWarning, eventLevel(slog.LevelWarn))
	assert.Equal(t, model.EventLevelInfo, eventLevel(slog.LevelInfo))
}
