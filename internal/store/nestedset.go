// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// Structural errors returned by NestedSet.
var (
	ErrCyclicMove       = errors.New("cannot move a node under itself or its descendants")
	ErrRootHasChildren  = errors.New("cannot delete a root that still has children")
	ErrTreeAlreadyRoots = errors.New("a tree root already exists")
	ErrDetachedParent   = errors.New("parent is not attached to a tree")
)

// NewNode describes a category about to be inserted.
type NewNode struct {
	Label    string
	LabelKey string
}

// NestedSet maintains left/right/level bounds while inserting, moving and
// deleting categories. Every operation runs in its own transaction.
type NestedSet struct {
	db *sql.DB
	q  *Queries
}

// NewNestedSet returns the structural primitives for db.
func NewNestedSet(db *sql.DB, dialect Dialect) *NestedSet {
	return &NestedSet{db: db, q: New(db, dialect)}
}

// treeOf returns the id identifying the tree a node belongs to.
func treeOf(c model.Category) string {
	if c.RootID != "" {
		return c.RootID
	}
	return c.ID
}

// isDetached reports whether c sits outside every tree: no parent and no
// root, as left by a creation that skipped tree placement.
func isDetached(c model.Category) bool {
	return c.ParentID == "" && c.RootID == ""
}

// InsertRoot creates the root of the category tree. It fails if a parentless
// node already acts as a root, i.e. has descendants or is its own root.
func (ns *NestedSet) InsertRoot(ctx context.Context, node NewNode) (model.Category, error) {
	var created model.Category
	err := RunInTx(ctx, ns.db, ns.q, func(q *Queries) error {
		var n int64
		if err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE parent_id IS NULL AND root_id = id`,
		).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrTreeAlreadyRoots
		}

		id := uuid.NewString()
		var err error
		created, err = q.CreateCategory(ctx, CreateCategoryParams{
			ID:       id,
			Label:    node.Label,
			LabelKey: node.LabelKey,
			RootID:   id,
			Left:     1,
			Right:    2,
			Level:    0,
			Now:      time.Now(),
		})
		return err
	})
	return created, err
}

// InsertUnder appends a new node as the last child of parentID.
func (ns *NestedSet) InsertUnder(ctx context.Context, parentID string, node NewNode) (model.Category, error) {
	var created model.Category
	err := RunInTx(ctx, ns.db, ns.q, func(q *Queries) error {
		parent, err := q.GetCategory(ctx, parentID)
		if err != nil {
			return fmt.Errorf("loading parent %s: %w", parentID, err)
		}
		if isDetached(parent) {
			return fmt.Errorf("parent %s: %w", parentID, ErrDetachedParent)
		}
		tree := treeOf(parent)

		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET rgt = rgt + 2 WHERE (root_id = ? OR id = ?) AND rgt >= ?`,
			tree, tree, parent.Right,
		); err != nil {
			return err
		}
		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET lft = lft + 2 WHERE (root_id = ? OR id = ?) AND lft > ?`,
			tree, tree, parent.Right,
		); err != nil {
			return err
		}

		created, err = q.CreateCategory(ctx, CreateCategoryParams{
			ID:       uuid.NewString(),
			Label:    node.Label,
			LabelKey: node.LabelKey,
			RootID:   tree,
			ParentID: parent.ID,
			Left:     parent.Right,
			Right:    parent.Right + 1,
			Level:    parent.Level + 1,
			Now:      time.Now(),
		})
		return err
	})
	return created, err
}

// MoveSubtree detaches the subtree rooted at nodeID and appends it as the last
// child of newParentID, possibly in another tree.
func (ns *NestedSet) MoveSubtree(ctx context.Context, nodeID, newParentID string) (model.Category, error) {
	var moved model.Category
	err := RunInTx(ctx, ns.db, ns.q, func(q *Queries) error {
		node, err := q.GetCategory(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", nodeID, err)
		}
		parent, err := q.GetCategory(ctx, newParentID)
		if err != nil {
			return fmt.Errorf("loading parent %s: %w", newParentID, err)
		}
		if isDetached(parent) {
			return fmt.Errorf("parent %s: %w", newParentID, ErrDetachedParent)
		}

		oldTree := treeOf(node)
		if parent.ID == node.ID || (treeOf(parent) == oldTree && node.Left < parent.Left && parent.Right < node.Right) {
			return ErrCyclicMove
		}

		descendants, err := q.ListDescendants(ctx, ListDescendantsParams{RootID: oldTree, Left: node.Left, Right: node.Right})
		if err != nil {
			return err
		}
		subtree := make([]string, 0, len(descendants)+1)
		subtree = append(subtree, node.ID)
		for _, d := range descendants {
			subtree = append(subtree, d.ID)
		}
		width := node.Right - node.Left + 1
		notInSubtree := `id NOT IN (` + inPlaceholders(len(subtree)) + `)`
		subtreeArgs := stringArgs(subtree)

		// Close the gap left in the old tree.
		if err := q.shift(ctx, oldTree, "rgt", -width, node.Right, notInSubtree, subtreeArgs); err != nil {
			return err
		}
		if err := q.shift(ctx, oldTree, "lft", -width, node.Right, notInSubtree, subtreeArgs); err != nil {
			return err
		}

		// Bounds of the new parent may have moved with the gap.
		parent, err = q.GetCategory(ctx, newParentID)
		if err != nil {
			return err
		}
		newTree := treeOf(parent)

		// Open room at the end of the new parent.
		if err := q.shift(ctx, newTree, "rgt", width, parent.Right-1, notInSubtree, subtreeArgs); err != nil {
			return err
		}
		if err := q.shift(ctx, newTree, "lft", width, parent.Right, notInSubtree, subtreeArgs); err != nil {
			return err
		}

		offset := parent.Right - node.Left
		levelDelta := parent.Level + 1 - node.Level
		args := append([]any{offset, offset, levelDelta, newTree}, subtreeArgs...)
		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET lft = lft + ?, rgt = rgt + ?, level = level + ?, root_id = ?
			 WHERE id IN (`+inPlaceholders(len(subtree))+`)`,
			args...,
		); err != nil {
			return err
		}

		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET parent_id = ?, modified_at = ? WHERE id = ?`,
			parent.ID, time.Now(), node.ID,
		); err != nil {
			return err
		}

		moved, err = q.GetCategory(ctx, node.ID)
		return err
	})
	return moved, err
}

// shift adds delta to column for the rows of tree whose column is greater than
// after, excluding the rows matched by the exclusion clause.
func (q *Queries) shift(ctx context.Context, tree, column string, delta, after int64, exclude string, excludeArgs []any) error {
	args := append([]any{delta, tree, tree, after}, excludeArgs...)
	_, err := q.db.ExecContext(ctx,
		`UPDATE categories SET `+column+` = `+column+` + ?
		 WHERE (root_id = ? OR id = ?) AND `+column+` > ? AND `+exclude,
		args...,
	)
	return err
}

// DeleteAndReattachChildren removes a node, hands its children to its parent
// and renumbers the bounds. The node's content links are removed with it.
func (ns *NestedSet) DeleteAndReattachChildren(ctx context.Context, nodeID string) error {
	return RunInTx(ctx, ns.db, ns.q, func(q *Queries) error {
		node, err := q.GetCategory(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", nodeID, err)
		}
		tree := treeOf(node)

		if node.IsRoot() && !node.IsLeaf() {
			return ErrRootHasChildren
		}

		if _, err := q.db.ExecContext(ctx, `
			UPDATE categories SET lft = lft - 1, rgt = rgt - 1, level = level - 1
			WHERE root_id = ? AND lft > ? AND rgt < ?`,
			tree, node.Left, node.Right,
		); err != nil {
			return err
		}
		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET parent_id = ?, modified_at = ? WHERE parent_id = ?`,
			nullString(node.ParentID), time.Now(), node.ID,
		); err != nil {
			return err
		}
		if err := q.DeleteLinksByCategory(ctx, node.ID); err != nil {
			return err
		}
		if err := q.DeleteCategory(ctx, node.ID); err != nil {
			return err
		}
		if _, err := q.db.ExecContext(ctx,
			`UPDATE categories SET rgt = rgt - 2 WHERE (root_id = ? OR id = ?) AND rgt > ?`,
			tree, tree, node.Right,
		); err != nil {
			return err
		}
		_, err = q.db.ExecContext(ctx,
			`UPDATE categories SET lft = lft - 2 WHERE (root_id = ? OR id = ?) AND lft > ?`,
			tree, tree, node.Right,
		)
		return err
	})
}
