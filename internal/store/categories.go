// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

const categoryColumns = `id, label, root_id, parent_id, lft, rgt, level, created_at, modified_at`

// scanCategory scans a row into a model.Category.
func scanCategory(scanner interface{ Scan(...any) error }) (model.Category, error) {
	var (
		c        model.Category
		rootID   sql.NullString
		parentID sql.NullString
	)
	err := scanner.Scan(
		&c.ID, &c.Label, &rootID, &parentID,
		&c.Left, &c.Right, &c.Level, &c.CreatedAt, &c.ModifiedAt,
	)
	if err != nil {
		return model.Category{}, err
	}
	c.RootID = rootID.String
	c.ParentID = parentID.String
	return c, nil
}

// scanCategories drains rows into a slice.
func scanCategories(rows *sql.Rows) ([]model.Category, error) {
	defer func() { _ = rows.Close() }()

	items := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetCategory returns the category with the given id, or sql.ErrNoRows.
func (q *Queries) GetCategory(ctx context.Context, id string) (model.Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// ListCategoriesByIDs returns the categories whose id is in ids, in storage order.
func (q *Queries) ListCategoriesByIDs(ctx context.Context, ids []string) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// ListCategoriesByLabelPrefix returns up to limit categories whose label starts
// with prefix, compared byte-wise, ordered by label ascending.
func (q *Queries) ListCategoriesByLabelPrefix(ctx context.Context, prefix string, limit int) ([]model.Category, error) {
	var query string
	var pattern string
	switch q.dialect {
	case DialectMySQL:
		query = `SELECT ` + categoryColumns + ` FROM categories
			WHERE label COLLATE utf8mb4_bin LIKE ?
			ORDER BY label COLLATE utf8mb4_bin ASC
			LIMIT ?`
		pattern = escapeLike(prefix) + "%"
	default:
		// GLOB is case-sensitive, LIKE is not.
		query = `SELECT ` + categoryColumns + ` FROM categories
			WHERE label GLOB ?
			ORDER BY label ASC
			LIMIT ?`
		pattern = escapeGlob(prefix) + "*"
	}

	rows, err := q.db.QueryContext(ctx, query, pattern, limit)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// escapeGlob neutralizes SQLite GLOB metacharacters.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			sb.WriteByte('[')
			sb.WriteRune(r)
			sb.WriteByte(']')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// escapeLike neutralizes LIKE metacharacters using the default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// childOrderColumns maps sortable fields to columns.
var childOrderColumns = map[string]string{
	"id":          "id",
	"label":       "label",
	"left":        "lft",
	"right":       "rgt",
	"level":       "level",
	"created_at":  "created_at",
	"modified_at": "modified_at",
}

// IsSortableField reports whether field can be used to order children.
func IsSortableField(field string) bool {
	_, ok := childOrderColumns[field]
	return ok
}

// ListChildCategoriesParams selects and orders the children of a node.
type ListChildCategoriesParams struct {
	ParentID string
	OrderBy  string // one of the sortable fields; empty keeps storage order
	Desc     bool
	Offset   int64
	Limit    int64 // 0 returns every child
}

// ListChildCategories returns the direct children of a node.
func (q *Queries) ListChildCategories(ctx context.Context, arg ListChildCategoriesParams) ([]model.Category, error) {
	order := "lft ASC"
	if arg.OrderBy != "" {
		col, ok := childOrderColumns[arg.OrderBy]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", arg.OrderBy)
		}
		dir := "ASC"
		if arg.Desc {
			dir = "DESC"
		}
		order = col + " " + dir + ", lft ASC"
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = ? ORDER BY ` + order
	args := []any{arg.ParentID}
	if arg.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, arg.Limit, arg.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// CountChildCategories returns the number of direct children of a node.
func (q *Queries) CountChildCategories(ctx context.Context, parentID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = ?`, parentID).Scan(&n)
	return n, err
}

// ListRootCategories returns up to limit tree roots: parentless nodes that
// own their tree. Detached nodes, which have no root, are not included.
func (q *Queries) ListRootCategories(ctx context.Context, limit int) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id IS NULL AND root_id = id ORDER BY id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// ListDescendantsParams selects the nodes inside a bound range of one tree.
type ListDescendantsParams struct {
	RootID   string
	Left     int64
	Right    int64
	MaxLevel int64 // 0 means unbounded
}

// ListDescendants returns the nodes strictly inside (Left, Right) of the tree, ordered by lft.
func (q *Queries) ListDescendants(ctx context.Context, arg ListDescendantsParams) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories
		WHERE root_id = ? AND lft > ? AND lft < ?`
	args := []any{arg.RootID, arg.Left, arg.Right}
	if arg.MaxLevel > 0 {
		query += ` AND level <= ?`
		args = append(args, arg.MaxLevel)
	}
	query += ` ORDER BY lft ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// ListAllCategories returns every category ordered by tree and left bound.
func (q *Queries) ListAllCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY COALESCE(root_id, id), lft ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// FindCategoryIDByLabelKeyHex returns the id of the category whose label key
// hex-encodes to keyHex, or sql.ErrNoRows.
func (q *Queries) FindCategoryIDByLabelKeyHex(ctx context.Context, keyHex string) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE hex(label_key) = ? LIMIT 1`,
		keyHex,
	).Scan(&id)
	return id, err
}

// CreateCategoryParams holds the columns of a new category.
type CreateCategoryParams struct {
	ID       string
	Label    string
	LabelKey string
	RootID   string
	ParentID string
	Left     int64
	Right    int64
	Level    int64
	Now      time.Time
}

// CreateCategory inserts a category and returns it.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (id, label, label_key, root_id, parent_id, lft, rgt, level, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Label, []byte(arg.LabelKey), nullString(arg.RootID), nullString(arg.ParentID),
		arg.Left, arg.Right, arg.Level, arg.Now, arg.Now,
	)
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategory(ctx, arg.ID)
}

// DeleteCategory removes a single category row.
func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}
