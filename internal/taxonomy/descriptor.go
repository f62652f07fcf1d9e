// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// ElementTypeCategory is the element type carrying a category id as value.
const ElementTypeCategory = "Element\\Category"

// Element is an editable content element. Category elements hold a category id.
type Element struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IsCategory reports whether e is a category element.
func (e *Element) IsCategory() bool {
	return e != nil && e.Type == ElementTypeCategory
}

// Descriptor is a caller-supplied category value: a raw label or an element.
type Descriptor struct {
	Label   string   `json:"label,omitempty"`
	Element *Element `json:"element,omitempty"`
}

// LabelDescriptor wraps a raw label.
func LabelDescriptor(label string) Descriptor {
	return Descriptor{Label: label}
}

// CategoryDescriptor wraps a category element referencing categoryID.
func CategoryDescriptor(elementID, categoryID string) Descriptor {
	return Descriptor{Element: &Element{ID: elementID, Type: ElementTypeCategory, Value: categoryID}}
}

// categoryValue returns the trimmed value of a category element descriptor.
// ok is false for raw labels and non-category elements.
func (d Descriptor) categoryValue() (value string, ok bool) {
	if !d.Element.IsCategory() {
		return "", false
	}
	return strings.TrimSpace(d.Element.Value), true
}

// ResolveDraft returns d with the element value replaced by the actor's draft.
// d is returned unchanged when there is no draft for its element.
func ResolveDraft(d Descriptor, draft *model.Draft) Descriptor {
	if d.Element == nil || draft == nil || draft.ElementID != d.Element.ID {
		return d
	}
	resolved := *d.Element
	resolved.Value = draft.Value
	return Descriptor{Label: d.Label, Element: &resolved}
}

// DraftFinder looks up the draft of an element owned by an actor.
// A missing draft is (nil, nil).
type DraftFinder interface {
	FindDraft(ctx context.Context, elementID, actor string) (*model.Draft, error)
}

// StoreDrafts finds drafts in the content_drafts table.
type StoreDrafts struct {
	queries *store.Queries
}

// NewStoreDrafts returns a DraftFinder backed by queries.
func NewStoreDrafts(queries *store.Queries) *StoreDrafts {
	return &StoreDrafts{queries: queries}
}

// FindDraft implements DraftFinder.
func (s *StoreDrafts) FindDraft(ctx context.Context, elementID, actor string) (*model.Draft, error) {
	d, err := s.queries.GetDraft(ctx, elementID, actor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
