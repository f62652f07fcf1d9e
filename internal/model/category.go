// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"slices"
	"time"
)

// Category is a node of the global nested-set category tree.
//
// RootID is empty only for the root itself and for nodes created outside the
// tree (see taxonomy.Builder). ParentID is empty only for the root.
type Category struct {
	ID         string       `json:"id"`
	Label      string       `json:"label"`
	RootID     string       `json:"root_id,omitempty"`
	ParentID   string       `json:"parent_id,omitempty"`
	Left       int64        `json:"left"`
	Right      int64        `json:"right"`
	Level      int64        `json:"level"`
	CreatedAt  sql.NullTime `json:"created_at"`
	ModifiedAt sql.NullTime `json:"modified_at"`

	// Links holds the content ids joined to this node, when loaded.
	Links LinkSet `json:"-"`
}

// IsRoot reports whether the node has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == ""
}

// IsLeaf reports whether the node's bounds leave no room for descendants.
func (c *Category) IsLeaf() bool {
	return c.Right-c.Left == 1
}

// Contains reports whether other lies strictly inside c's bounds in the same tree.
func (c *Category) Contains(other *Category) bool {
	if other == nil || c.treeID() != other.treeID() {
		return false
	}
	return c.Left < other.Left && other.Right < c.Right
}

// treeID returns the id of the tree the node belongs to.
func (c *Category) treeID() string {
	if c.RootID == "" && c.IsRoot() {
		return c.ID
	}
	return c.RootID
}

// AddLink adds a content id to the node's link set. Returns false if it was already present.
func (c *Category) AddLink(contentID string) bool {
	if c.Links == nil {
		c.Links = LinkSet{}
	}
	return c.Links.Add(contentID)
}

// RemoveLink removes a content id from the node's link set. Returns false if it was absent.
func (c *Category) RemoveLink(contentID string) bool {
	return c.Links.Remove(contentID)
}

// Params returns the nested-set parameters exposed to renderers.
func (c *Category) Params() map[string]int64 {
	return map[string]int64{
		"left":  c.Left,
		"right": c.Right,
		"level": c.Level,
	}
}

// Param returns a single rendering parameter.
func (c *Category) Param(name string) (int64, bool) {
	v, ok := c.Params()[name]
	return v, ok
}

// Summary returns the node's tree summary without children.
func (c *Category) Summary() TreeSummary {
	return TreeSummary{
		ID:       c.ID,
		Level:    c.Level,
		Label:    c.Label,
		Children: []TreeSummary{},
	}
}

// PublicRecord returns the flat serialization of the node.
// A node that is neither the root nor attached to a root has no valid record.
func (c *Category) PublicRecord(hasChildren bool) (PublicRecord, bool) {
	rootID := c.RootID
	if rootID == "" {
		if !c.IsRoot() {
			return PublicRecord{}, false
		}
		rootID = c.ID
	}

	rec := PublicRecord{
		ID:          c.ID,
		RootID:      rootID,
		Label:       c.Label,
		HasChildren: hasChildren,
	}
	if c.ParentID != "" {
		parentID := c.ParentID
		rec.ParentID = &parentID
	}
	if c.CreatedAt.Valid {
		ts := c.CreatedAt.Time.Unix()
		rec.CreatedAt = &ts
	}
	if c.ModifiedAt.Valid {
		ts := c.ModifiedAt.Time.Unix()
		rec.ModifiedAt = &ts
	}
	return rec, true
}

// TreeSummary is a structural snapshot of a node and its subtree.
type TreeSummary struct {
	ID       string        `json:"id"`
	Level    int64         `json:"level"`
	Label    string        `json:"label"`
	Children []TreeSummary `json:"children"`
}

// Walk visits the summary depth-first, parents before children.
// Returning false from fn stops the walk.
func (s TreeSummary) Walk(fn func(TreeSummary) bool) bool {
	if !fn(s) {
		return false
	}
	for _, child := range s.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// PublicRecord is the flat wire representation of a category.
// Timestamps are Unix seconds.
type PublicRecord struct {
	ID          string  `json:"id"`
	RootID      string  `json:"root_id"`
	ParentID    *string `json:"parent_id"`
	Label       string  `json:"label"`
	HasChildren bool    `json:"has_children"`
	CreatedAt   *int64  `json:"created_at"`
	ModifiedAt  *int64  `json:"modified_at"`
}

// LinkSet is a set of content ids.
type LinkSet map[string]struct{}

// NewLinkSet builds a set from the given ids.
func NewLinkSet(ids ...string) LinkSet {
	s := make(LinkSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id. Returns false if it was already present.
func (s LinkSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id. Returns false if it was absent.
func (s LinkSet) Remove(id string) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

// Has reports whether id is in the set.
func (s LinkSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s LinkSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CategoryLink is a row of the category/content join table.
type CategoryLink struct {
	CategoryID string    `json:"category_id"`
	ContentID  string    `json:"content_id"`
	CreatedAt  time.Time `json:"created_at"`
}
