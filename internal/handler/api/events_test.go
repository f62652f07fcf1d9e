// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

func TestListEvents(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		require.NoError(t, s.queries.CreateEvent(ctx, store.CreateEventParams{
			Level:     model.EventLevelWarning,
			Category:  model.EventCategoryTree,
			Message:   fmt.Sprintf("warning %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level: model.EventLevelError, Category: model.EventCategoryLinks, Message: "boom", CreatedAt: now,
	}))

	w := s.do(t, http.MethodGet, "/api/v1/events?level=warning&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var events []model.Event
	meta := decodeData(t, w, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "warning 2", events[0].Message)
	require.NotNil(t, meta)
	assert.Equal(t, int64(3), meta.Total)
	assert.True(t, meta.HasMore)

	w = s.do(t, http.MethodGet, "/api/v1/events?category=links", "")
	require.Equal(t, http.StatusOK, w.Code)
	events = nil
	decodeData(t, w, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "boom", events[0].Message)
}

func TestListEvents_Empty(t *testing.T) {
	s := testSetup(t)

	w := s.do(t, http.MethodGet, "/api/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestListEvents_BadParams(t *testing.T) {
	s := testSetup(t)

	for _, path := range []string{
		"/api/v1/events?level=loud",
		"/api/v1/events?limit=-1",
		"/api/v1/events?offset=x",
	} {
		w := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestIntegrity(t *testing.T) {
	s := testSetup(t)

	w := s.do(t, http.MethodGet, "/api/v1/integrity", "")
	assert.Equal(t, http.StatusConflict, w.Code, "no root yet")

	s.buildTree(t)

	w = s.do(t, http.MethodGet, "/api/v1/integrity", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report taxonomy.Report
	decodeData(t, w, &report)
	assert.Equal(t, 3, report.Nodes)
	assert.Empty(t, report.Problems)
}
