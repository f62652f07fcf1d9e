// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultRootLabel is the label of the seeded tree root.
const DefaultRootLabel = "Categories"

// Seed creates the root of the category tree when the database has none.
func Seed(ctx context.Context, db *sql.DB, dialect Dialect, root NewNode) error {
	queries := New(db, dialect)

	roots, err := queries.ListRootCategories(ctx, 1)
	if err != nil {
		return fmt.Errorf("checking for root category: %w", err)
	}
	if len(roots) > 0 {
		slog.Info("root category already exists, skipping seed", "id", roots[0].ID)
		return nil
	}

	created, err := NewNestedSet(db, dialect).InsertRoot(ctx, root)
	if err != nil {
		if errors.Is(err, ErrTreeAlreadyRoots) {
			return nil
		}
		return fmt.Errorf("creating root category: %w", err)
	}

	slog.Info("created root category", "id", created.ID, "label", created.Label)
	return nil
}
