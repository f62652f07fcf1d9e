// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/middleware"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
	"github.com/olegiv/ocms-taxonomy/internal/testutil"
)

type testServer struct {
	db      *sql.DB
	queries *store.Queries
	builder *taxonomy.Builder
	router  http.Handler
}

// testSetup creates a migrated database, the taxonomy services and a router
// serving the API.
func testSetup(t *testing.T) *testServer {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	logger := testutil.TestLoggerSilent()
	q := store.New(db, store.DialectSQLite)
	repo := taxonomy.NewRepository(q, logger, taxonomy.WithTreeCache(cache.NewTreeCache(mem, time.Hour)))
	builder := taxonomy.NewBuilder(db, store.DialectSQLite, repo, logger)
	links := taxonomy.NewLinkManager(q, repo, taxonomy.NewStoreDrafts(q), logger)

	h := NewHandler(db, q, Services{Repo: repo, Builder: builder, Links: links, Cache: mem}, logger,
		WithAutocompleteLimit(2), WithVersion("test"))

	r := chi.NewRouter()
	r.Use(middleware.Actor)
	h.RegisterRoutes(r)

	return &testServer{db: db, queries: q, builder: builder, router: r}
}

// buildTree creates Root > (Alpha, Beta) and returns the nodes by label.
func (s *testServer) buildTree(t *testing.T) map[string]*model.Category {
	t.Helper()
	ctx := context.Background()

	root, err := s.builder.CreateRoot(ctx, "Root")
	require.NoError(t, err)
	alpha, err := s.builder.CreateUnder(ctx, root.ID, "Alpha")
	require.NoError(t, err)
	beta, err := s.builder.CreateUnder(ctx, root.ID, "Beta")
	require.NoError(t, err)

	reloaded, err := s.queries.GetCategory(ctx, root.ID)
	require.NoError(t, err)

	return map[string]*model.Category{"Root": &reloaded, "Alpha": alpha, "Beta": beta}
}

// do executes a request against the router.
func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success response into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) *Meta {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
		Meta *Meta           `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, dst))
	return resp.Meta
}

// decodeError unmarshals an error response.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp.Error
}
