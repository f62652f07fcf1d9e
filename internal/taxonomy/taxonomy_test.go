// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/testutil"
)

type testEnv struct {
	db      *sql.DB
	queries *store.Queries
	repo    *Repository
	builder *Builder
	links   *LinkManager
	trees   *cache.TreeCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })
	trees := cache.NewTreeCache(mem, time.Hour)

	logger := testutil.TestLogger()
	q := store.New(db, store.DialectSQLite)
	repo := NewRepository(q, logger, WithTreeCache(trees))

	return &testEnv{
		db:      db,
		queries: q,
		repo:    repo,
		builder: NewBuilder(db, store.DialectSQLite, repo, logger),
		links:   NewLinkManager(q, repo, NewStoreDrafts(q), logger),
		trees:   trees,
	}
}

// buildTree creates root > (a > a1), b and returns the nodes by label.
func (e *testEnv) buildTree(t *testing.T) map[string]*model.Category {
	t.Helper()
	ctx := context.Background()

	root, err := e.builder.CreateRoot(ctx, "root")
	require.NoError(t, err)
	a, err := e.builder.CreateUnder(ctx, root.ID, "a")
	require.NoError(t, err)
	_, err = e.builder.CreateUnder(ctx, a.ID, "a1")
	require.NoError(t, err)
	_, err = e.builder.CreateUnder(ctx, root.ID, "b")
	require.NoError(t, err)

	return e.reload(t)
}

func (e *testEnv) reload(t *testing.T) map[string]*model.Category {
	t.Helper()
	all, err := e.queries.ListAllCategories(context.Background())
	require.NoError(t, err)
	nodes := make(map[string]*model.Category, len(all))
	for i := range all {
		nodes[all[i].Label] = &all[i]
	}
	return nodes
}

func (e *testEnv) content(t *testing.T, state model.PageState) *model.Content {
	t.Helper()
	c := testutil.CreateContent(t, e.db, state)
	return &c
}

// storeRoot returns the row of a second tree root, bypassing the builder.
func storeRoot(id string) store.CreateCategoryParams {
	return store.CreateCategoryParams{
		ID:       id,
		Label:    id,
		LabelKey: LabelKey(id),
		RootID:   id,
		Left:     1,
		Right:    2,
		Now:      time.Now(),
	}
}
