// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer provides import/export of the category tree and its
// content links.
package transfer

import (
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// ExportVersion is the current version of the export format.
const ExportVersion = "1.0"

// Archive entry names.
const (
	TreeFile       = "tree.json"
	CategoriesFile = "categories.json"
	LinksFile      = "links.json"
)

// ExportData represents the complete export structure.
type ExportData struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Tree       *model.TreeSummary `json:"tree,omitempty"`
	Categories []ExportCategory   `json:"categories"`
	Links      []ExportLink       `json:"links,omitempty"`
}

// ExportCategory is one nested-set row.
type ExportCategory struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	RootID     string     `json:"root_id,omitempty"`
	ParentID   string     `json:"parent_id,omitempty"`
	Left       int64      `json:"left"`
	Right      int64      `json:"right"`
	Level      int64      `json:"level"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// ExportLink is one category-content link.
type ExportLink struct {
	CategoryID string    `json:"category_id"`
	ContentID  string    `json:"content_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExportOptions configures what to include in the export.
type ExportOptions struct {
	IncludeTree  bool `json:"include_tree"`
	IncludeLinks bool `json:"include_links"`
}

// DefaultExportOptions returns options that include everything.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeTree:  true,
		IncludeLinks: true,
	}
}

// ImportOptions configures an import.
type ImportOptions struct {
	// DryRun validates and counts without writing.
	DryRun bool `json:"dry_run"`
	// SkipLinks ignores the links section.
	SkipLinks bool `json:"skip_links"`
}

// ImportError describes a rejected entity.
type ImportError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (e ImportError) Error() string {
	return e.Entity + " " + e.ID + ": " + e.Message
}

// ImportResult summarizes an import.
type ImportResult struct {
	DryRun  bool           `json:"dry_run"`
	Created map[string]int `json:"created"`
	Skipped map[string]int `json:"skipped"`
	Errors  []ImportError  `json:"errors,omitempty"`
}

// NewImportResult creates an empty result.
func NewImportResult(dryRun bool) *ImportResult {
	return &ImportResult{
		DryRun:  dryRun,
		Created: map[string]int{},
		Skipped: map[string]int{},
	}
}

// AddError records a rejected entity.
func (r *ImportResult) AddError(entity, id, message string) {
	r.Errors = append(r.Errors, ImportError{Entity: entity, ID: id, Message: message})
}

// Success reports whether the import finished without errors.
func (r *ImportResult) Success() bool {
	return len(r.Errors) == 0
}
