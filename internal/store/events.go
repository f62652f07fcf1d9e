// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// CreateEventParams holds the columns of a new event.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Actor     string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent appends an event to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	metadata := arg.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, category, message, actor, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Actor, metadata, arg.CreatedAt,
	)
	return err
}

// ListEventsParams filters and windows the event log. Empty filters match all.
type ListEventsParams struct {
	Level    string
	Category string
	Limit    int64
	Offset   int64
}

func (arg ListEventsParams) where() (string, []any) {
	clause := ` WHERE 1 = 1`
	var args []any
	if arg.Level != "" {
		clause += ` AND level = ?`
		args = append(args, arg.Level)
	}
	if arg.Category != "" {
		clause += ` AND category = ?`
		args = append(args, arg.Category)
	}
	return clause, args
}

// ListEvents returns events newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	clause, args := arg.where()
	query := `SELECT id, level, category, message, actor, metadata, created_at FROM events` +
		clause + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Actor, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CountEvents counts the events matching the filters of arg.
func (q *Queries) CountEvents(ctx context.Context, arg ListEventsParams) (int64, error) {
	clause, args := arg.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+clause, args...).Scan(&n)
	return n, err
}

// DeleteEventsBefore removes events older than cutoff and returns how many went.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
