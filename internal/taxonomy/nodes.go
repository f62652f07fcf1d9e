// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// NodeStore navigates and links individual category nodes.
type NodeStore struct {
	queries *store.Queries
}

// NewNodeStore returns a NodeStore over queries.
func NewNodeStore(queries *store.Queries) *NodeStore {
	return &NodeStore{queries: queries}
}

// treeOf returns the id shared as root by the node's tree.
func treeOf(node model.Category) string {
	if node.RootID != "" {
		return node.RootID
	}
	return node.ID
}

// Children returns the nodes whose parent is node, in storage order.
func (s *NodeStore) Children(ctx context.Context, node model.Category) ([]model.Category, error) {
	children, err := s.queries.ListChildCategories(ctx, store.ListChildCategoriesParams{ParentID: node.ID})
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", node.ID, err)
	}
	return children, nil
}

// Descendants returns the nodes inside node's bounds in the same tree.
// maxDepth > 0 limits the result to that many levels below node.
func (s *NodeStore) Descendants(ctx context.Context, node model.Category, maxDepth int) ([]model.Category, error) {
	arg := store.ListDescendantsParams{
		RootID: treeOf(node),
		Left:   node.Left,
		Right:  node.Right,
	}
	if maxDepth > 0 {
		arg.MaxLevel = node.Level + int64(maxDepth)
	}
	nodes, err := s.queries.ListDescendants(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("listing descendants of %s: %w", node.ID, err)
	}
	return nodes, nil
}

// HasChildren reports whether at least one node has node as parent.
func (s *NodeStore) HasChildren(ctx context.Context, node model.Category) (bool, error) {
	n, err := s.queries.CountChildCategories(ctx, node.ID)
	if err != nil {
		return false, fmt.Errorf("counting children of %s: %w", node.ID, err)
	}
	return n > 0, nil
}

// LoadLinks fills node.Links from the join table.
func (s *NodeStore) LoadLinks(ctx context.Context, node *model.Category) error {
	ids, err := s.queries.ListContentIDsByCategory(ctx, node.ID)
	if err != nil {
		return fmt.Errorf("loading links of %s: %w", node.ID, err)
	}
	node.Links = model.NewLinkSet(ids...)
	return nil
}

// AddLink joins contentID to node. Adding a present link is a no-op.
// Returns true if a join row was written.
func (s *NodeStore) AddLink(ctx context.Context, node *model.Category, contentID string) (bool, error) {
	if node.Links.Has(contentID) {
		return false, nil
	}
	added, err := s.queries.AddCategoryLink(ctx, node.ID, contentID, time.Now())
	if err != nil {
		return false, fmt.Errorf("linking %s to %s: %w", contentID, node.ID, err)
	}
	node.AddLink(contentID)
	return added, nil
}

// RemoveLink unjoins contentID from node. Removing an absent link is a no-op.
// Returns true if a join row was deleted.
func (s *NodeStore) RemoveLink(ctx context.Context, node *model.Category, contentID string) (bool, error) {
	removed, err := s.queries.RemoveCategoryLink(ctx, node.ID, contentID)
	if err != nil {
		return false, fmt.Errorf("unlinking %s from %s: %w", contentID, node.ID, err)
	}
	node.RemoveLink(contentID)
	return removed, nil
}

// PublicRecord returns the flat serialization of node.
// A non-root node without root yields ErrIntegrity.
func (s *NodeStore) PublicRecord(ctx context.Context, node model.Category) (model.PublicRecord, error) {
	hasChildren, err := s.HasChildren(ctx, node)
	if err != nil {
		return model.PublicRecord{}, err
	}
	rec, ok := node.PublicRecord(hasChildren)
	if !ok {
		return model.PublicRecord{}, fmt.Errorf("category %s has a parent but no root: %w", node.ID, ErrIntegrity)
	}
	return rec, nil
}
