// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// AddCategoryLink joins a content item to a category. Existing pairs are left untouched.
// Returns true if a row was inserted.
func (q *Queries) AddCategoryLink(ctx context.Context, categoryID, contentID string, now time.Time) (bool, error) {
	verb := "INSERT OR IGNORE"
	if q.dialect == DialectMySQL {
		verb = "INSERT IGNORE"
	}
	res, err := q.db.ExecContext(ctx,
		verb+` INTO categories_contents (category_id, content_id, created_at) VALUES (?, ?, ?)`,
		categoryID, contentID, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveCategoryLink deletes one join row. Returns true if a row was deleted.
func (q *Queries) RemoveCategoryLink(ctx context.Context, categoryID, contentID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM categories_contents WHERE category_id = ? AND content_id = ?`,
		categoryID, contentID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasCategoryLink reports whether the pair is joined.
func (q *Queries) HasCategoryLink(ctx context.Context, categoryID, contentID string) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories_contents WHERE category_id = ? AND content_id = ?`,
		categoryID, contentID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListCategoryIDsByContent returns the ids of the categories joined to a content item.
func (q *Queries) ListCategoryIDsByContent(ctx context.Context, contentID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id FROM categories_contents WHERE content_id = ? ORDER BY category_id`,
		contentID,
	)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// ListContentIDsByCategory returns the ids of the content items joined to a category.
func (q *Queries) ListContentIDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT content_id FROM categories_contents WHERE category_id = ? ORDER BY content_id`,
		categoryID,
	)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// DeleteCategoryLinks removes the joins between a content item and the given
// categories in a single statement. Returns the number of deleted rows.
func (q *Queries) DeleteCategoryLinks(ctx context.Context, contentID string, categoryIDs []string) (int64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	args := append([]any{contentID}, stringArgs(categoryIDs)...)
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM categories_contents WHERE content_id = ? AND category_id IN (`+inPlaceholders(len(categoryIDs))+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteLinksByCategory removes every join of a category.
func (q *Queries) DeleteLinksByCategory(ctx context.Context, categoryID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories_contents WHERE category_id = ?`, categoryID)
	return err
}

// ListAllCategoryLinks returns every join row.
func (q *Queries) ListAllCategoryLinks(ctx context.Context) ([]model.CategoryLink, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id, content_id, created_at FROM categories_contents ORDER BY category_id, content_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	links := []model.CategoryLink{}
	for rows.Next() {
		var l model.CategoryLink
		if err := rows.Scan(&l.CategoryID, &l.ContentID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ContentIDsByCategoriesParams filters linked content by page state.
type ContentIDsByCategoriesParams struct {
	CategoryIDs []string
	// States restricts pages to these exact states when non-empty.
	States []model.PageState
	// Below restricts pages to states strictly below this value when States is empty.
	Below model.PageState
}

// ContentIDsByCategories returns the distinct ids of the content joined to any
// of the categories whose owning page passes the state filter.
func (q *Queries) ContentIDsByCategories(ctx context.Context, arg ContentIDsByCategoriesParams) ([]string, error) {
	if len(arg.CategoryIDs) == 0 {
		return []string{}, nil
	}

	query := `SELECT DISTINCT contents.id
		FROM categories_contents
		LEFT JOIN contents ON contents.id = categories_contents.content_id
		LEFT JOIN pages ON pages.id = contents.page_id
		WHERE categories_contents.category_id IN (` + inPlaceholders(len(arg.CategoryIDs)) + `)`
	args := stringArgs(arg.CategoryIDs)

	if len(arg.States) > 0 {
		query += ` AND pages.state IN (` + inPlaceholders(len(arg.States)) + `)`
		for _, s := range arg.States {
			args = append(args, int64(s))
		}
	} else {
		query += ` AND pages.state < ?`
		args = append(args, int64(arg.Below))
	}
	query += ` ORDER BY contents.id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// scanStrings drains a single-column result.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
