// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// ContentRef identifies a content item that can be tagged.
type ContentRef interface {
	ContentID() string
}

// isNilRef reports whether ref is nil or wraps a nil pointer.
func isNilRef(ref ContentRef) bool {
	if ref == nil {
		return true
	}
	if c, ok := ref.(*model.Content); ok && c == nil {
		return true
	}
	return false
}

// LinkManager keeps the category links of a content item in step with the
// category values attached to it.
type LinkManager struct {
	queries *store.Queries
	repo    *Repository
	drafts  DraftFinder
	logger  *slog.Logger
}

// NewLinkManager returns a LinkManager. drafts may be nil when draft editing
// is not used. A nil logger uses slog.Default().
func NewLinkManager(queries *store.Queries, repo *Repository, drafts DraftFinder, logger *slog.Logger) *LinkManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkManager{queries: queries, repo: repo, drafts: drafts, logger: logger}
}

// UpdateLinks links content to every node referenced by a non-empty category
// value. With an actor, each value is first replaced by the actor's draft.
// Values that are not category elements or do not resolve are skipped.
// Existing links are never removed here; see CleanLinks.
func (m *LinkManager) UpdateLinks(ctx context.Context, content ContentRef, values []Descriptor, actor string) (int, error) {
	if err := requireContent(content, values); err != nil {
		return 0, err
	}

	added := 0
	for _, d := range values {
		if _, ok := d.categoryValue(); !ok {
			continue
		}
		d, err := m.resolveDraft(ctx, d, actor)
		if err != nil {
			return added, err
		}

		value, _ := d.categoryValue()
		if value == "" {
			continue
		}
		if isNilRef(content) {
			return added, ErrInvalidReference
		}
		node, err := m.repo.Get(ctx, value)
		if err != nil {
			return added, err
		}
		if node == nil {
			m.logger.Debug("category value does not resolve, skipping", "value", value)
			continue
		}

		ok, err := m.repo.Nodes().AddLink(ctx, node, content.ContentID())
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// CleanLinks removes the links of content to nodes no longer referenced by
// values, in one batch delete. Returns the number of removed links.
func (m *LinkManager) CleanLinks(ctx context.Context, content ContentRef, values []Descriptor) (int64, error) {
	if isNilRef(content) {
		return 0, ErrInvalidReference
	}

	referenced := model.NewLinkSet()
	var candidates []Descriptor
	for _, d := range values {
		if v, ok := d.categoryValue(); ok && v != "" {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) > 0 {
		res, err := m.repo.FindNodesForLabelsOrIds(ctx, candidates)
		if err != nil {
			return 0, err
		}
		for _, n := range res.Nodes {
			referenced.Add(n.ID)
		}
	}

	stored, err := m.queries.ListCategoryIDsByContent(ctx, content.ContentID())
	if err != nil {
		return 0, fmt.Errorf("listing links of %s: %w", content.ContentID(), err)
	}

	var stale []string
	for _, id := range stored {
		if !referenced.Has(id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := m.queries.DeleteCategoryLinks(ctx, content.ContentID(), stale)
	if err != nil {
		return 0, fmt.Errorf("removing stale links of %s: %w", content.ContentID(), err)
	}
	m.logger.Debug("stale category links removed", "content", content.ContentID(), "count", n)
	return n, nil
}

// SyncResult reports what Sync changed.
type SyncResult struct {
	Added   int   `json:"added"`
	Removed int64 `json:"removed"`
}

// Sync runs UpdateLinks then CleanLinks so the links of content mirror values
// exactly. Drafts of actor are applied before both steps.
func (m *LinkManager) Sync(ctx context.Context, content ContentRef, values []Descriptor, actor string) (SyncResult, error) {
	resolved := make([]Descriptor, 0, len(values))
	for _, d := range values {
		r, err := m.resolveDraft(ctx, d, actor)
		if err != nil {
			return SyncResult{}, err
		}
		resolved = append(resolved, r)
	}

	added, err := m.UpdateLinks(ctx, content, resolved, "")
	if err != nil {
		return SyncResult{Added: added}, err
	}
	removed, err := m.CleanLinks(ctx, content, resolved)
	if err != nil {
		return SyncResult{Added: added}, err
	}
	return SyncResult{Added: added, Removed: removed}, nil
}

// LinkFromPost stores a submitted value on a category element and links the
// owning content to the referenced node.
func (m *LinkManager) LinkFromPost(ctx context.Context, element *Element, value string, parent ContentRef) error {
	if !element.IsCategory() {
		return ErrTypeMismatch
	}
	element.Value = value

	if value == "" {
		return nil
	}
	node, err := m.repo.Get(ctx, value)
	if err != nil || node == nil {
		return err
	}
	if isNilRef(parent) {
		return fmt.Errorf("linking category %s: %w", node.ID, ErrInvalidReference)
	}
	_, err = m.repo.Nodes().AddLink(ctx, node, parent.ContentID())
	return err
}

// UnlinkFromPost removes the link between the owning content and the node
// referenced by a submitted value.
func (m *LinkManager) UnlinkFromPost(ctx context.Context, element *Element, value string, parent ContentRef) error {
	if !element.IsCategory() {
		return ErrTypeMismatch
	}
	if value == "" {
		return nil
	}
	if isNilRef(parent) {
		return fmt.Errorf("unlinking category %s: %w", value, ErrInvalidReference)
	}
	node, err := m.repo.Get(ctx, value)
	if err != nil || node == nil {
		return err
	}
	_, err = m.repo.Nodes().RemoveLink(ctx, node, parent.ContentID())
	return err
}

// resolveDraft replaces the value of a category element by the actor's draft.
func (m *LinkManager) resolveDraft(ctx context.Context, d Descriptor, actor string) (Descriptor, error) {
	if actor == "" || m.drafts == nil || !d.Element.IsCategory() {
		return d, nil
	}
	draft, err := m.drafts.FindDraft(ctx, d.Element.ID, actor)
	if err != nil {
		return d, fmt.Errorf("finding draft of %s for %s: %w", d.Element.ID, actor, err)
	}
	return ResolveDraft(d, draft), nil
}

// requireContent fails with ErrInvalidReference when a non-empty category
// value is given without content.
func requireContent(content ContentRef, values []Descriptor) error {
	if !isNilRef(content) {
		return nil
	}
	for _, d := range values {
		if v, ok := d.categoryValue(); ok && v != "" {
			return ErrInvalidReference
		}
	}
	return nil
}
