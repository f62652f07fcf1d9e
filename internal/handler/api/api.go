// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API over the category tree.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// Autocomplete limits.
const (
	DefaultAutocompleteLimit = taxonomy.DefaultPrefixLimit
	MaxAutocompleteLimit     = 100
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// Services bundles the taxonomy components the API consumes.
type Services struct {
	Repo    *taxonomy.Repository
	Builder *taxonomy.Builder
	Links   *taxonomy.LinkManager
	Cache   cache.Cacher // optional, reported by the health check
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db                *sql.DB
	queries           *store.Queries
	repo              *taxonomy.Repository
	builder           *taxonomy.Builder
	links             *taxonomy.LinkManager
	cache             cache.Cacher
	logger            *slog.Logger
	autocompleteLimit int
	version           string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithAutocompleteLimit sets the default number of autocomplete suggestions.
func WithAutocompleteLimit(limit int) Option {
	return func(h *Handler) {
		if limit > 0 {
			h.autocompleteLimit = min(limit, MaxAutocompleteLimit)
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates a new API handler. A nil logger uses slog.Default().
func NewHandler(db *sql.DB, queries *store.Queries, svc Services, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		db:                db,
		queries:           queries,
		repo:              svc.Repo,
		builder:           svc.Builder,
		links:             svc.Links,
		cache:             svc.Cache,
		logger:            logger,
		autocompleteLimit: DefaultAutocompleteLimit,
		version:           "dev",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the API on r. Callers add middleware first.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/events", h.ListEvents)
		r.Get("/integrity", h.Integrity)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/autocomplete", h.Autocomplete)
			r.Get("/root", h.GetRoot)
			r.Get("/tree", h.GetTree)
			r.Get("/contents", h.ListContentIDs)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Get("/{id}/children", h.ListChildren)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Put("/contents/{id}/categories", h.SyncContentCategories)
	})
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Offset  int64 `json:"offset"`
	Limit   int64 `json:"limit,omitempty"`
	HasMore bool  `json:"has_more"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}

// requireCategory loads the category named by the {id} URL parameter.
// Returns false if a response was already written.
func (h *Handler) requireCategory(w http.ResponseWriter, r *http.Request) (*model.Category, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		WriteBadRequest(w, "Missing category ID", nil)
		return nil, false
	}

	node, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load category", "id", id, "error", err)
		WriteInternalError(w, "Failed to retrieve category")
		return nil, false
	}
	if node == nil {
		WriteNotFound(w, "Category not found")
		return nil, false
	}
	return node, true
}

// decodeJSON decodes a size-limited request body into dst.
// Returns false if a response was already written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// queryInt parses a non-negative integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return v, nil
}

// queryBool parses a boolean query parameter, returning def when absent.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}

// splitIDs splits a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for part := range strings.SplitSeq(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
