// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the taxonomy service.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary SQLite database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "taxonomy-test.db")
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := store.NewDB("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

// TestMemoryDB creates an in-memory database on the cgo SQLite driver with
// migrations applied. A single connection keeps the schema visible.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=1")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateContent inserts a page in the given state owning one content item,
// and returns the content.
func CreateContent(t *testing.T, db *sql.DB, state model.PageState) model.Content {
	t.Helper()

	ctx := context.Background()
	q := store.New(db, store.DialectSQLite)
	now := time.Now()

	page, err := q.CreatePage(ctx, store.CreatePageParams{
		ID:    uuid.NewString(),
		Title: "Test Page",
		State: state,
		Now:   now,
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	content, err := q.CreateContent(ctx, store.CreateContentParams{
		ID:     uuid.NewString(),
		PageID: page.ID,
		Type:   "Element\\Text",
		Now:    now,
	})
	if err != nil {
		t.Fatalf("CreateContent: %v", err)
	}
	return content
}
