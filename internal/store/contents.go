// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// CreatePageParams holds the columns of a new page.
type CreatePageParams struct {
	ID    string
	Title string
	State model.PageState
	Now   time.Time
}

// CreatePage inserts a page.
func (q *Queries) CreatePage(ctx context.Context, arg CreatePageParams) (model.Page, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO pages (id, title, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Title, int64(arg.State), arg.Now, arg.Now,
	)
	if err != nil {
		return model.Page{}, err
	}
	return model.Page{ID: arg.ID, Title: arg.Title, State: arg.State, CreatedAt: arg.Now, UpdatedAt: arg.Now}, nil
}

// UpdatePageState changes the publishing state of a page.
func (q *Queries) UpdatePageState(ctx context.Context, id string, state model.PageState, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pages SET state = ?, updated_at = ? WHERE id = ?`,
		int64(state), now, id,
	)
	return err
}

// CreateContentParams holds the columns of a new content item.
type CreateContentParams struct {
	ID     string
	PageID string
	Type   string
	Now    time.Time
}

// CreateContent inserts a content item.
func (q *Queries) CreateContent(ctx context.Context, arg CreateContentParams) (model.Content, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO contents (id, page_id, type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, nullString(arg.PageID), arg.Type, arg.Now, arg.Now,
	)
	if err != nil {
		return model.Content{}, err
	}
	return q.GetContent(ctx, arg.ID)
}

// GetContent returns a content item or sql.ErrNoRows.
func (q *Queries) GetContent(ctx context.Context, id string) (model.Content, error) {
	var c model.Content
	err := q.db.QueryRowContext(ctx,
		`SELECT id, page_id, type, created_at, updated_at FROM contents WHERE id = ?`, id,
	).Scan(&c.ID, &c.PageID, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// SaveDraftParams holds an actor-scoped element value.
type SaveDraftParams struct {
	ID        string
	ElementID string
	Owner     string
	Value     string
	Now       time.Time
}

// SaveDraft stores the draft value of an element for an owner, replacing any previous one.
func (q *Queries) SaveDraft(ctx context.Context, arg SaveDraftParams) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM content_drafts WHERE element_id = ? AND owner = ?`,
		arg.ElementID, arg.Owner,
	); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO content_drafts (id, element_id, owner, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.ElementID, arg.Owner, arg.Value, arg.Now, arg.Now,
	)
	return err
}

// GetDraft returns the draft of an element for an owner, or sql.ErrNoRows.
func (q *Queries) GetDraft(ctx context.Context, elementID, owner string) (model.Draft, error) {
	var d model.Draft
	err := q.db.QueryRowContext(ctx, `
		SELECT id, element_id, owner, value, created_at, updated_at
		FROM content_drafts WHERE element_id = ? AND owner = ?`,
		elementID, owner,
	).Scan(&d.ID, &d.ElementID, &d.Owner, &d.Value, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}
