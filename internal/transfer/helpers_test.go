// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
	"github.com/olegiv/ocms-taxonomy/internal/testutil"
)

// testSetup contains common test dependencies.
type testSetup struct {
	DB       *sql.DB
	Queries  *store.Queries
	Repo     *taxonomy.Repository
	Builder  *taxonomy.Builder
	Exporter *Exporter
	Importer *Importer
	Ctx      context.Context
}

// setupTest creates a migrated database with the taxonomy services.
func setupTest(t *testing.T) *testSetup {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	logger := testutil.TestLoggerSilent()
	q := store.New(db, store.DialectSQLite)
	repo := taxonomy.NewRepository(q, logger, taxonomy.WithTreeCache(cache.NewTreeCache(mem, time.Hour)))

	return &testSetup{
		DB:       db,
		Queries:  q,
		Repo:     repo,
		Builder:  taxonomy.NewBuilder(db, store.DialectSQLite, repo, logger),
		Exporter: NewExporter(q, repo, logger),
		Importer: NewImporter(db, q, repo, logger),
		Ctx:      context.Background(),
	}
}

// seedTree creates Root > (News > Local), Sport and links one online
// content item to Local. Returns the nodes by label and the content.
func (ts *testSetup) seedTree(t *testing.T) (map[string]*model.Category, model.Content) {
	t.Helper()

	root, err := ts.Builder.CreateRoot(ts.Ctx, "Root")
	require.NoError(t, err)
	news, err := ts.Builder.CreateUnder(ts.Ctx, root.ID, "News")
	require.NoError(t, err)
	local, err := ts.Builder.CreateUnder(ts.Ctx, news.ID, "Local")
	require.NoError(t, err)
	sport, err := ts.Builder.CreateUnder(ts.Ctx, root.ID, "Sport")
	require.NoError(t, err)

	content := testutil.CreateContent(t, ts.DB, model.StateOnline)
	_, err = ts.Queries.AddCategoryLink(ts.Ctx, local.ID, content.ID, time.Now())
	require.NoError(t, err)

	return map[string]*model.Category{"Root": root, "News": news, "Local": local, "Sport": sport}, content
}
