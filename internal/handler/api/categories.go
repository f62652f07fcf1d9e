// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// CategoryAPIResponse represents a category with its tree position.
type CategoryAPIResponse struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	RootID     string     `json:"root_id,omitempty"`
	ParentID   string     `json:"parent_id,omitempty"`
	Left       int64      `json:"left"`
	Right      int64      `json:"right"`
	Level      int64      `json:"level"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// CreateCategoryRequest represents the request body for creating a category.
type CreateCategoryRequest struct {
	Label    string `json:"label"`
	ParentID string `json:"parent_id,omitempty"`
	// DryRun returns the category that would be created without writing it.
	DryRun bool `json:"dry_run,omitempty"`
}

func categoryToResponse(c model.Category) CategoryAPIResponse {
	resp := CategoryAPIResponse{
		ID:       c.ID,
		Label:    c.Label,
		RootID:   c.RootID,
		ParentID: c.ParentID,
		Left:     c.Left,
		Right:    c.Right,
		Level:    c.Level,
	}
	if c.CreatedAt.Valid {
		t := c.CreatedAt.Time
		resp.CreatedAt = &t
	}
	if c.ModifiedAt.Valid {
		t := c.ModifiedAt.Time
		resp.ModifiedAt = &t
	}
	return resp
}

func categoriesToResponse(items []model.Category) []CategoryAPIResponse {
	out := make([]CategoryAPIResponse, 0, len(items))
	for _, c := range items {
		out = append(out, categoryToResponse(c))
	}
	return out
}

// Autocomplete handles GET /api/v1/categories/autocomplete
// Returns categories whose label starts with q, case-sensitively.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")

	limit, err := queryInt(r, "limit", int64(h.autocompleteLimit))
	if err != nil {
		WriteBadRequest(w, "Invalid limit", map[string]string{"limit": err.Error()})
		return
	}
	if limit == 0 {
		limit = int64(h.autocompleteLimit)
	}
	limit = min(limit, MaxAutocompleteLimit)

	found, err := h.repo.FindByLabelPrefix(r.Context(), prefix, int(limit))
	if err != nil {
		WriteInternalError(w, "Failed to search categories")
		return
	}

	WriteSuccess(w, categoriesToResponse(found), nil)
}

// GetRoot handles GET /api/v1/categories/root
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	root, err := h.repo.GetRoot(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to retrieve root")
		return
	}
	if root == nil {
		WriteNotFound(w, "No unique root category")
		return
	}

	rec, err := h.repo.Nodes().PublicRecord(r.Context(), *root)
	if err != nil {
		h.logger.Error("failed to build root record", "id", root.ID, "error", err)
		WriteInternalError(w, "Failed to retrieve root")
		return
	}
	WriteSuccess(w, rec, nil)
}

// GetTree handles GET /api/v1/categories/tree
// Optional ?root= selects the subtree to materialize.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var start *model.Category
	if id := strings.TrimSpace(r.URL.Query().Get("root")); id != "" {
		node, err := h.repo.Get(ctx, id)
		if err != nil {
			WriteInternalError(w, "Failed to retrieve category")
			return
		}
		if node == nil {
			WriteNotFound(w, "Category not found")
			return
		}
		start = node
	}

	tree, err := h.repo.MaterializeTree(ctx, start)
	if err != nil {
		h.logger.Error("failed to materialize tree", "error", err)
		WriteInternalError(w, "Failed to build tree")
		return
	}
	if tree == nil {
		WriteNotFound(w, "No unique root category")
		return
	}
	WriteSuccess(w, tree, nil)
}

// GetCategory handles GET /api/v1/categories/{id}
// Returns the public record of the category.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	node, ok := h.requireCategory(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Nodes().PublicRecord(r.Context(), *node)
	if errors.Is(err, taxonomy.ErrIntegrity) {
		WriteConflict(w, "Category is not attached to a tree")
		return
	}
	if err != nil {
		WriteInternalError(w, "Failed to retrieve category")
		return
	}
	WriteSuccess(w, rec, nil)
}

// ListChildren handles GET /api/v1/categories/{id}/children
// Supports ?sort=&dir= ordering and ?offset=&limit= windowing.
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	node, ok := h.requireCategory(w, r)
	if !ok {
		return
	}

	var sort *taxonomy.Sort
	if field := strings.TrimSpace(r.URL.Query().Get("sort")); field != "" {
		sort = &taxonomy.Sort{Field: field, Direction: r.URL.Query().Get("dir")}
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteBadRequest(w, "Invalid offset", map[string]string{"offset": err.Error()})
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteBadRequest(w, "Invalid limit", map[string]string{"limit": err.Error()})
		return
	}
	var page *taxonomy.Page
	if limit > 0 || offset > 0 {
		page = &taxonomy.Page{Offset: offset, Limit: limit}
	}

	children, err := h.repo.ListChildren(r.Context(), *node, sort, page)
	if errors.Is(err, taxonomy.ErrInvalidSort) {
		WriteBadRequest(w, "Invalid sort", map[string]string{"sort": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to list children", "id", node.ID, "error", err)
		WriteInternalError(w, "Failed to list children")
		return
	}

	WriteSuccess(w, categoriesToResponse(children.Items), &Meta{
		Total:   children.Total,
		Offset:  children.Offset,
		Limit:   children.Limit,
		HasMore: children.HasMore(),
	})
}

// CreateCategory handles POST /api/v1/categories
// Returns the existing category when one with the same label exists. With a
// parent_id a new or detached category is placed under that parent; a
// category already in the tree under another parent answers 409.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if taxonomy.SanitizeLabel(req.Label) == "" {
		WriteValidationError(w, map[string]string{"label": "Label is required"})
		return
	}

	ctx := r.Context()
	parentID := strings.TrimSpace(req.ParentID)
	if parentID != "" {
		parent, err := h.repo.Get(ctx, parentID)
		if err != nil {
			WriteInternalError(w, "Failed to retrieve parent category")
			return
		}
		if parent == nil {
			WriteValidationError(w, map[string]string{"parent_id": "Parent category not found"})
			return
		}
		if parent.ParentID == "" && parent.RootID == "" {
			WriteValidationError(w, map[string]string{"parent_id": "Parent category is not attached to the tree"})
			return
		}
	}

	existing, err := h.repo.ExistsByLabel(ctx, req.Label)
	if err != nil {
		WriteInternalError(w, "Failed to check label")
		return
	}

	node, err := h.builder.CreateIfNotExists(ctx, req.Label, !req.DryRun)
	if err != nil {
		h.logger.Error("failed to create category", "label", req.Label, "error", err)
		WriteInternalError(w, "Failed to create category")
		return
	}

	placed := node.ParentID != "" || node.RootID != ""
	if parentID != "" && placed && node.ParentID != parentID {
		// Existing categories are never moved by a create.
		WriteConflict(w, "Category already exists under another parent")
		return
	}

	if parentID != "" && !req.DryRun && !placed {
		nodeID := node.ID
		node, err = h.builder.AttachToTree(ctx, nodeID, parentID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			WriteValidationError(w, map[string]string{"parent_id": "Parent category not found"})
			return
		case errors.Is(err, store.ErrDetachedParent):
			WriteValidationError(w, map[string]string{"parent_id": "Parent category is not attached to the tree"})
			return
		case errors.Is(err, store.ErrCyclicMove):
			WriteValidationError(w, map[string]string{"parent_id": "Cannot move a category under itself"})
			return
		case err != nil:
			h.logger.Error("failed to attach category", "id", nodeID, "parent", parentID, "error", err)
			WriteInternalError(w, "Failed to attach category")
			return
		}
	}

	if existing != nil {
		WriteSuccess(w, categoryToResponse(*node), nil)
		return
	}
	WriteCreated(w, categoryToResponse(*node))
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
// Children of the deleted category move up to its parent.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	node, ok := h.requireCategory(w, r)
	if !ok {
		return
	}

	err := h.builder.Delete(r.Context(), node.ID)
	if errors.Is(err, store.ErrRootHasChildren) {
		WriteConflict(w, "Cannot delete a root that still has children")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete category", "id", node.ID, "error", err)
		WriteInternalError(w, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
