// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// Builder creates categories and changes the tree structure.
type Builder struct {
	queries *store.Queries
	tree    *store.NestedSet
	repo    *Repository
	logger  *slog.Logger
}

// NewBuilder returns a Builder writing to db. A nil logger uses slog.Default().
func NewBuilder(db *sql.DB, dialect store.Dialect, repo *Repository, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		queries: store.New(db, dialect),
		tree:    store.NewNestedSet(db, dialect),
		repo:    repo,
		logger:  logger,
	}
}

// CreateIfNotExists returns the category matching label, creating it when
// absent. The new node has no parent and no root until AttachToTree places
// it. With persist false the node is returned without being written.
//
// Concurrent creation of the same label is resolved by the unique label key:
// the losing insert re-reads and returns the winner.
func (b *Builder) CreateIfNotExists(ctx context.Context, label string, persist bool) (*model.Category, error) {
	sanitized := SanitizeLabel(label)
	if sanitized == "" {
		return nil, ErrEmptyLabel
	}

	existing, err := b.repo.ExistsByLabel(ctx, sanitized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	node := model.Category{
		ID:         uuid.NewString(),
		Label:      sanitized,
		Left:       1,
		Right:      2,
		Level:      0,
		CreatedAt:  sql.NullTime{Time: now, Valid: true},
		ModifiedAt: sql.NullTime{Time: now, Valid: true},
	}
	if !persist {
		return &node, nil
	}

	created, err := b.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID:       node.ID,
		Label:    node.Label,
		LabelKey: LabelKey(sanitized),
		Left:     node.Left,
		Right:    node.Right,
		Level:    node.Level,
		Now:      now,
	})
	if store.IsUniqueViolation(err) {
		b.logger.Debug("category created concurrently, re-reading", "label", sanitized)
		return b.repo.ExistsByLabel(ctx, sanitized)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category %q: %w", sanitized, err)
	}

	b.logger.Info("category created", "id", created.ID, "label", created.Label)
	b.repo.InvalidateTrees(ctx)
	return &created, nil
}

// CreateRoot creates the tree root.
func (b *Builder) CreateRoot(ctx context.Context, label string) (*model.Category, error) {
	sanitized := SanitizeLabel(label)
	if sanitized == "" {
		return nil, ErrEmptyLabel
	}
	root, err := b.tree.InsertRoot(ctx, store.NewNode{Label: sanitized, LabelKey: LabelKey(sanitized)})
	if err != nil {
		return nil, fmt.Errorf("creating root %q: %w", sanitized, err)
	}
	b.repo.InvalidateTrees(ctx)
	return &root, nil
}

// CreateUnder returns the category matching label, inserting it as the last
// child of parentID when absent. An existing category is returned unmoved.
func (b *Builder) CreateUnder(ctx context.Context, parentID, label string) (*model.Category, error) {
	sanitized := SanitizeLabel(label)
	if sanitized == "" {
		return nil, ErrEmptyLabel
	}

	existing, err := b.repo.ExistsByLabel(ctx, sanitized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := b.tree.InsertUnder(ctx, parentID, store.NewNode{Label: sanitized, LabelKey: LabelKey(sanitized)})
	if store.IsUniqueViolation(err) {
		return b.repo.ExistsByLabel(ctx, sanitized)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %q under %s: %w", sanitized, parentID, err)
	}
	b.repo.InvalidateTrees(ctx)
	return &created, nil
}

// AttachToTree moves a node, with its descendants, to the end of parentID's children.
func (b *Builder) AttachToTree(ctx context.Context, nodeID, parentID string) (*model.Category, error) {
	moved, err := b.tree.MoveSubtree(ctx, nodeID, parentID)
	if err != nil {
		return nil, fmt.Errorf("attaching %s under %s: %w", nodeID, parentID, err)
	}
	b.repo.InvalidateTrees(ctx)
	return &moved, nil
}

// Delete removes a node; its children move up to its parent.
func (b *Builder) Delete(ctx context.Context, nodeID string) error {
	if err := b.tree.DeleteAndReattachChildren(ctx, nodeID); err != nil {
		return fmt.Errorf("deleting %s: %w", nodeID, err)
	}
	b.repo.InvalidateTrees(ctx)
	return nil
}
