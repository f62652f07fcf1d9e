// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// PageState is the publishing state bitmask of a page.
type PageState int64

// Page states. Values combine, e.g. StateOnline|StateHidden.
const (
	StateOffline PageState = 0
	StateOnline  PageState = 1
	StateHidden  PageState = 2
	StateDeleted PageState = 4
)

// OnlineStates lists the states considered published.
var OnlineStates = []PageState{StateOnline, StateOnline | StateHidden}

// Has reports whether all bits of flag are set.
func (s PageState) Has(flag PageState) bool {
	return s&flag == flag
}

// IsOnline returns true if the page is published, hidden or not.
func (s PageState) IsOnline() bool {
	return s == StateOnline || s == StateOnline|StateHidden
}

// IsDeleted returns true if the page is in the trash.
func (s PageState) IsDeleted() bool {
	return s >= StateDeleted
}

// Page represents a page owning content items.
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	State     PageState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content is a content item that can be tagged with categories.
type Content struct {
	ID        string         `json:"id"`
	PageID    sql.NullString `json:"page_id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ContentID implements taxonomy.ContentRef.
func (c *Content) ContentID() string {
	return c.ID
}

// Draft is an actor-scoped unpublished value of a content element.
type Draft struct {
	ID        string    `json:"id"`
	ElementID string    `json:"element_id"`
	Owner     string    `json:"owner"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
