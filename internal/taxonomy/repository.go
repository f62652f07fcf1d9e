// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package taxonomy maintains the nested-set category tree and the links
// between categories and content items.
package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/ocms-taxonomy/internal/cache"
	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// DefaultPrefixLimit caps prefix searches when no limit is given.
const DefaultPrefixLimit = 10

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sort orders a child listing by one field.
type Sort struct {
	Field     string // id, label, left, right, level, created_at, modified_at
	Direction string // asc (default) or desc
}

// Page selects a window of a child listing.
type Page struct {
	Offset int64
	Limit  int64
}

// ChildPage is a window over the ordered children of a node.
type ChildPage struct {
	Items  []model.Category
	Total  int64
	Offset int64
	Limit  int64 // 0 when the listing was not paginated
}

// HasMore reports whether children remain after this window.
func (p ChildPage) HasMore() bool {
	return p.Offset+int64(len(p.Items)) < p.Total
}

// Resolution is the outcome of FindNodesForLabelsOrIds.
type Resolution struct {
	Nodes []model.Category
	// Annotations maps the index of each resolved element descriptor to its node.
	Annotations map[int]model.Category
}

// Repository answers read queries over the category tree.
type Repository struct {
	queries     *store.Queries
	nodes       *NodeStore
	trees       *cache.TreeCache
	logger      *slog.Logger
	prefixLimit int
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(*Repository)

// WithTreeCache caches materialized trees.
func WithTreeCache(trees *cache.TreeCache) RepositoryOption {
	return func(r *Repository) { r.trees = trees }
}

// WithPrefixLimit sets the default result cap of FindByLabelPrefix.
func WithPrefixLimit(limit int) RepositoryOption {
	return func(r *Repository) {
		if limit > 0 {
			r.prefixLimit = limit
		}
	}
}

// NewRepository returns a Repository over queries. A nil logger uses slog.Default().
func NewRepository(queries *store.Queries, logger *slog.Logger, opts ...RepositoryOption) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		queries:     queries,
		nodes:       NewNodeStore(queries),
		logger:      logger,
		prefixLimit: DefaultPrefixLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Nodes returns the node navigator sharing the repository's store.
func (r *Repository) Nodes() *NodeStore {
	return r.nodes
}

// Get returns the category with the given id, or nil if it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*model.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %s: %w", id, err)
	}
	return &c, nil
}

// FindByLabelPrefix returns up to limit categories whose label starts with
// prefix, case-sensitively, in ascending label order. limit <= 0 uses the
// repository default. On store failure the result is empty and the error
// wraps ErrBackend.
func (r *Repository) FindByLabelPrefix(ctx context.Context, prefix string, limit int) ([]model.Category, error) {
	if limit <= 0 {
		limit = r.prefixLimit
	}
	found, err := r.queries.ListCategoriesByLabelPrefix(ctx, prefix, limit)
	if err != nil {
		return []model.Category{}, readFailure(r.logger, "find_by_label_prefix", err)
	}
	return found, nil
}

// ListChildren returns the children of parent, ordered by sort when given and
// windowed by page when given.
func (r *Repository) ListChildren(ctx context.Context, parent model.Category, sort *Sort, page *Page) (ChildPage, error) {
	arg := store.ListChildCategoriesParams{ParentID: parent.ID}
	if sort != nil {
		if !store.IsSortableField(sort.Field) {
			return ChildPage{}, fmt.Errorf("field %q: %w", sort.Field, ErrInvalidSort)
		}
		switch strings.ToLower(sort.Direction) {
		case "", SortAsc:
		case SortDesc:
			arg.Desc = true
		default:
			return ChildPage{}, fmt.Errorf("direction %q: %w", sort.Direction, ErrInvalidSort)
		}
		arg.OrderBy = sort.Field
	}
	if page != nil {
		arg.Offset = max(page.Offset, 0)
		arg.Limit = max(page.Limit, 0)
	}

	items, err := r.queries.ListChildCategories(ctx, arg)
	if err != nil {
		return ChildPage{}, fmt.Errorf("listing children of %s: %w", parent.ID, err)
	}

	result := ChildPage{Items: items, Total: int64(len(items))}
	if arg.Limit > 0 {
		total, err := r.queries.CountChildCategories(ctx, parent.ID)
		if err != nil {
			return ChildPage{}, fmt.Errorf("counting children of %s: %w", parent.ID, err)
		}
		result.Total = total
		result.Offset = arg.Offset
		result.Limit = arg.Limit
	}
	return result, nil
}

// GetRoot returns the tree root. It returns nil when there is no root or
// more than one. On store failure the result is nil and the error wraps ErrBackend.
func (r *Repository) GetRoot(ctx context.Context) (*model.Category, error) {
	roots, err := r.queries.ListRootCategories(ctx, 2)
	if err != nil {
		return nil, readFailure(r.logger, "get_root", err)
	}
	if len(roots) != 1 {
		return nil, nil
	}
	return &roots[0], nil
}

// MaterializeTree builds the summary of the subtree under node, one level per
// step. A nil node starts at the root; a missing root yields nil.
func (r *Repository) MaterializeTree(ctx context.Context, node *model.Category) (*model.TreeSummary, error) {
	if node == nil {
		root, err := r.GetRoot(ctx)
		if err != nil || root == nil {
			return nil, err
		}
		node = root
	}

	build := func() (*model.TreeSummary, error) {
		summary, err := r.summarize(ctx, *node)
		if err != nil {
			return nil, err
		}
		return &summary, nil
	}
	if r.trees == nil {
		return build()
	}
	return r.trees.GetOrSet(ctx, node.ID, build)
}

func (r *Repository) summarize(ctx context.Context, node model.Category) (model.TreeSummary, error) {
	summary := node.Summary()
	children, err := r.nodes.Descendants(ctx, node, 1)
	if err != nil {
		return model.TreeSummary{}, err
	}
	for _, child := range children {
		sub, err := r.summarize(ctx, child)
		if err != nil {
			return model.TreeSummary{}, err
		}
		summary.Children = append(summary.Children, sub)
	}
	return summary, nil
}

// InvalidateTrees drops cached tree summaries.
func (r *Repository) InvalidateTrees(ctx context.Context) {
	if r.trees == nil {
		return
	}
	if err := r.trees.Invalidate(ctx); err != nil {
		r.logger.Warn("failed to invalidate tree cache", "category", "taxonomy", "error", err)
	}
}

// FindNodesForLabelsOrIds looks up the nodes referenced by descriptors.
// Element descriptors and trimmed raw labels are both matched against node
// ids; labels are never resolved by label. Annotations are keyed by the index
// of each element descriptor that resolved. Result order is storage order.
func (r *Repository) FindNodesForLabelsOrIds(ctx context.Context, descriptors []Descriptor) (Resolution, error) {
	res := Resolution{Nodes: []model.Category{}, Annotations: map[int]model.Category{}}
	if len(descriptors) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Element != nil {
			if v := strings.TrimSpace(d.Element.Value); v != "" {
				ids = append(ids, v)
			}
			continue
		}
		if v := strings.TrimSpace(d.Label); v != "" {
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return res, nil
	}

	nodes, err := r.queries.ListCategoriesByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("resolving category descriptors: %w", err)
	}
	res.Nodes = nodes

	byID := make(map[string]model.Category, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for i, d := range descriptors {
		if d.Element == nil {
			continue
		}
		if n, ok := byID[strings.TrimSpace(d.Element.Value)]; ok {
			res.Annotations[i] = n
		}
	}
	return res, nil
}

// ExistsByLabel returns the category whose label equals label ignoring case
// but not accents, or nil. The label is sanitized first.
func (r *Repository) ExistsByLabel(ctx context.Context, label string) (*model.Category, error) {
	if SanitizeLabel(label) == "" {
		return nil, nil
	}
	id, err := r.queries.FindCategoryIDByLabelKeyHex(ctx, LabelKeyHex(label))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking label %q: %w", label, err)
	}
	return r.Get(ctx, id)
}

// ContentIDsByCategories returns the ids of content linked to any of
// categoryIDs. With onlineOnly only content of online pages, hidden or not,
// is returned; otherwise only content of deleted pages is excluded. On store
// failure the result is empty and the error wraps ErrBackend.
func (r *Repository) ContentIDsByCategories(ctx context.Context, categoryIDs []string, onlineOnly bool) ([]string, error) {
	if len(categoryIDs) == 0 {
		return []string{}, nil
	}
	arg := store.ContentIDsByCategoriesParams{CategoryIDs: categoryIDs}
	if onlineOnly {
		arg.States = model.OnlineStates
	} else {
		arg.Below = model.StateDeleted
	}
	ids, err := r.queries.ContentIDsByCategories(ctx, arg)
	if err != nil {
		return []string{}, readFailure(r.logger, "content_ids_by_categories", err)
	}
	return ids, nil
}
