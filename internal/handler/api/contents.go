// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-taxonomy/internal/middleware"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// SyncCategoriesRequest represents the request body for replacing the
// categories of a content item. Each value is either a raw label or a
// category element whose value is a category id.
type SyncCategoriesRequest struct {
	Values []taxonomy.Descriptor `json:"values"`
}

// ContentIDsResponse lists content linked to a set of categories.
type ContentIDsResponse struct {
	CategoryIDs []string `json:"category_ids"`
	OnlineOnly  bool     `json:"online_only"`
	ContentIDs  []string `json:"content_ids"`
}

// ListContentIDs handles GET /api/v1/categories/contents
// ?ids= is a comma separated category id list; ?online= restricts the
// result to content of online pages and defaults to true.
func (h *Handler) ListContentIDs(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		WriteValidationError(w, map[string]string{"ids": "At least one category ID is required"})
		return
	}

	onlineOnly, err := queryBool(r, "online", true)
	if err != nil {
		WriteBadRequest(w, "Invalid online flag", map[string]string{"online": err.Error()})
		return
	}

	contentIDs, err := h.repo.ContentIDsByCategories(r.Context(), ids, onlineOnly)
	if err != nil {
		WriteInternalError(w, "Failed to list content")
		return
	}

	WriteSuccess(w, ContentIDsResponse{
		CategoryIDs: ids,
		OnlineOnly:  onlineOnly,
		ContentIDs:  contentIDs,
	}, nil)
}

// SyncContentCategories handles PUT /api/v1/contents/{id}/categories
// Links the content to the submitted categories and unlinks the rest. Draft
// values of the acting user, identified by X-Actor-Token, take precedence.
func (h *Handler) SyncContentCategories(w http.ResponseWriter, r *http.Request) {
	contentID := strings.TrimSpace(chi.URLParam(r, "id"))
	if contentID == "" {
		WriteBadRequest(w, "Missing content ID", nil)
		return
	}

	var req SyncCategoriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	content, err := h.queries.GetContent(ctx, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		WriteNotFound(w, "Content not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load content", "id", contentID, "error", err)
		WriteInternalError(w, "Failed to retrieve content")
		return
	}

	result, err := h.links.Sync(ctx, &content, req.Values, middleware.GetActor(r))
	if err != nil {
		h.logger.Error("failed to sync categories", "content", contentID, "error", err)
		WriteInternalError(w, "Failed to update categories")
		return
	}

	h.logger.Info("content categories synced",
		"content", contentID, "added", result.Added, "removed", result.Removed)
	WriteSuccess(w, result, nil)
}
