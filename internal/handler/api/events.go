// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// Event list windowing.
const (
	DefaultEventsLimit = 50
	MaxEventsLimit     = 200
)

// ListEvents handles GET /api/v1/events
// Supports ?level=&category= filters and ?offset=&limit= windowing.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := store.ListEventsParams{
		Level:    strings.TrimSpace(r.URL.Query().Get("level")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if params.Level != "" && !model.ValidEventLevel(params.Level) {
		WriteBadRequest(w, "Invalid level", map[string]string{"level": "must be info, warning or error"})
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteBadRequest(w, "Invalid offset", map[string]string{"offset": err.Error()})
		return
	}
	limit, err := queryInt(r, "limit", DefaultEventsLimit)
	if err != nil {
		WriteBadRequest(w, "Invalid limit", map[string]string{"limit": err.Error()})
		return
	}
	if limit == 0 {
		limit = DefaultEventsLimit
	}
	params.Offset = offset
	params.Limit = min(limit, MaxEventsLimit)

	ctx := r.Context()
	total, err := h.queries.CountEvents(ctx, params)
	if err != nil {
		WriteInternalError(w, "Failed to count events")
		return
	}
	events, err := h.queries.ListEvents(ctx, params)
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	WriteSuccess(w, events, &Meta{
		Total:   total,
		Offset:  params.Offset,
		Limit:   params.Limit,
		HasMore: params.Offset+int64(len(events)) < total,
	})
}

// Integrity handles GET /api/v1/integrity
// Audits the tree on demand. A corrupted tree answers 409 with the report.
func (h *Handler) Integrity(w http.ResponseWriter, r *http.Request) {
	report, err := taxonomy.CheckIntegrity(r.Context(), h.queries)
	if err != nil {
		h.logger.Error("integrity check failed", "error", err)
		WriteInternalError(w, "Failed to check integrity")
		return
	}
	if !report.OK() {
		WriteJSON(w, http.StatusConflict, Response{Data: report})
		return
	}
	WriteSuccess(w, report, nil)
}
