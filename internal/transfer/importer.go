// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"bytes"
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// Entity names used in import results.
const (
	entityCategory = "category"
	entityLink     = "link"
)

// maxArchiveEntry caps the decompressed size of one archive entry.
const maxArchiveEntry = 64 << 20

// ErrValidation is returned when import data is rejected before writing.
var ErrValidation = errors.New("transfer: validation failed")

// Importer restores categories and links exported by Exporter.
type Importer struct {
	db     *sql.DB
	store  *store.Queries
	repo   *taxonomy.Repository
	logger *slog.Logger
}

// NewImporter creates a new Importer instance. repo, when set, has its tree
// cache invalidated after a successful import.
func NewImporter(db *sql.DB, queries *store.Queries, repo *taxonomy.Repository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, store: queries, repo: repo, logger: logger}
}

// Import writes data in one transaction. Categories whose id already exists
// are skipped, as are links to unknown content. The import is rolled back if
// the resulting tree fails the integrity check.
func (i *Importer) Import(ctx context.Context, data *ExportData, opts ImportOptions) (*ImportResult, error) {
	result := NewImportResult(opts.DryRun)

	result.Errors = append(result.Errors, i.Validate(data)...)
	if !result.Success() {
		return result, ErrValidation
	}

	// Parents precede children within each tree.
	categories := slices.Clone(data.Categories)
	slices.SortStableFunc(categories, func(a, b ExportCategory) int {
		return cmp.Or(
			cmp.Compare(treeOf(a), treeOf(b)),
			cmp.Compare(a.Left, b.Left),
		)
	})
	slices.SortStableFunc(categories, func(a, b ExportCategory) int {
		// Roots first so every root_id reference resolves.
		return cmp.Compare(rootRank(a), rootRank(b))
	})

	err := store.RunInTx(ctx, i.db, i.store, func(q *store.Queries) error {
		if err := i.importCategories(ctx, q, categories, result); err != nil {
			return err
		}
		if !opts.SkipLinks {
			if err := i.importLinks(ctx, q, data.Links, result); err != nil {
				return err
			}
		}

		if result.Created[entityCategory] > 0 {
			report, err := taxonomy.CheckIntegrity(ctx, q)
			if err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				for _, p := range report.Problems {
					if p.Kind != taxonomy.ProblemDetached {
						result.AddError(entityCategory, p.NodeID, p.Kind+": "+p.Detail)
					}
				}
				return err
			}
		}

		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("import failed: %w", err)
	}

	if i.repo != nil {
		i.repo.InvalidateTrees(ctx)
	}
	i.logger.Info("import finished",
		"categories", result.Created[entityCategory],
		"links", result.Created[entityLink],
		"skipped_categories", result.Skipped[entityCategory],
		"skipped_links", result.Skipped[entityLink],
	)
	return result, nil
}

// errDryRun rolls back a dry run transaction.
var errDryRun = errors.New("dry run")

func (i *Importer) importCategories(ctx context.Context, q *store.Queries, categories []ExportCategory, result *ImportResult) error {
	for _, c := range categories {
		_, err := q.GetCategory(ctx, c.ID)
		if err == nil {
			result.Skipped[entityCategory]++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking category %s: %w", c.ID, err)
		}

		label := taxonomy.SanitizeLabel(c.Label)
		now := time.Now()
		if c.CreatedAt != nil {
			now = *c.CreatedAt
		}
		_, err = q.CreateCategory(ctx, store.CreateCategoryParams{
			ID:       c.ID,
			Label:    label,
			LabelKey: taxonomy.LabelKey(label),
			RootID:   c.RootID,
			ParentID: c.ParentID,
			Left:     c.Left,
			Right:    c.Right,
			Level:    c.Level,
			Now:      now,
		})
		if store.IsUniqueViolation(err) {
			result.AddError(entityCategory, c.ID, fmt.Sprintf("label %q already exists", label))
			return fmt.Errorf("category %s: duplicate label %q", c.ID, label)
		}
		if err != nil {
			return fmt.Errorf("creating category %s: %w", c.ID, err)
		}
		result.Created[entityCategory]++
	}
	return nil
}

func (i *Importer) importLinks(ctx context.Context, q *store.Queries, links []ExportLink, result *ImportResult) error {
	for _, l := range links {
		if _, err := q.GetContent(ctx, l.ContentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.Skipped[entityLink]++
				continue
			}
			return fmt.Errorf("checking content %s: %w", l.ContentID, err)
		}

		added, err := q.AddCategoryLink(ctx, l.CategoryID, l.ContentID, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("linking %s to %s: %w", l.ContentID, l.CategoryID, err)
		}
		if added {
			result.Created[entityLink]++
		} else {
			result.Skipped[entityLink]++
		}
	}
	return nil
}

// Validate checks the structure of data without touching the store.
func (i *Importer) Validate(data *ExportData) []ImportError {
	if data == nil {
		return []ImportError{{Entity: "export", Message: "no data"}}
	}

	var errs []ImportError
	if data.Version != ExportVersion {
		errs = append(errs, ImportError{Entity: "export", ID: data.Version, Message: "unsupported version"})
	}

	ids := make(map[string]ExportCategory, len(data.Categories))
	keys := make(map[string]string, len(data.Categories))
	for _, c := range data.Categories {
		switch {
		case strings.TrimSpace(c.ID) == "":
			errs = append(errs, ImportError{Entity: entityCategory, Message: "missing id"})
			continue
		case taxonomy.SanitizeLabel(c.Label) == "":
			errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "empty label"})
		case c.Left < 1 || c.Right <= c.Left || c.Level < 0:
			errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "invalid bounds"})
		}
		if _, dup := ids[c.ID]; dup {
			errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "duplicate id"})
		}
		ids[c.ID] = c

		key := taxonomy.LabelKey(c.Label)
		if other, dup := keys[key]; dup && key != "" {
			errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "label collides with " + other})
		}
		keys[key] = c.ID
	}

	for _, c := range data.Categories {
		if c.ParentID != "" {
			if _, ok := ids[c.ParentID]; !ok {
				errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "parent " + c.ParentID + " not in export"})
			}
		}
		if c.RootID != "" {
			if _, ok := ids[c.RootID]; !ok {
				errs = append(errs, ImportError{Entity: entityCategory, ID: c.ID, Message: "root " + c.RootID + " not in export"})
			}
		}
	}

	for _, l := range data.Links {
		if _, ok := ids[l.CategoryID]; !ok {
			errs = append(errs, ImportError{Entity: entityLink, ID: l.ContentID, Message: "category " + l.CategoryID + " not in export"})
		}
	}
	return errs
}

// ImportFromReader decodes a JSON export from r and imports it.
func (i *Importer) ImportFromReader(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	var data ExportData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return i.Import(ctx, &data, opts)
}

// ImportFromZipBytes imports an archive produced by ExportArchive.
// tree.json is informational and ignored.
func (i *Importer) ImportFromZipBytes(ctx context.Context, archive []byte, opts ImportOptions) (*ImportResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var data ExportData
	found := false
	for _, f := range zr.File {
		switch f.Name {
		case CategoriesFile:
			if err := readZipJSON(f, &data); err != nil {
				return nil, err
			}
			found = true
		case LinksFile:
			var links []ExportLink
			if err := readZipJSON(f, &links); err != nil {
				return nil, err
			}
			data.Links = append(data.Links, links...)
		}
	}
	if !found {
		return nil, fmt.Errorf("archive has no %s", CategoriesFile)
	}
	return i.Import(ctx, &data, opts)
}

func readZipJSON(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	if err := json.NewDecoder(io.LimitReader(rc, maxArchiveEntry)).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.Name, err)
	}
	return nil
}

// treeOf returns the tree an exported row belongs to.
func treeOf(c ExportCategory) string {
	if c.RootID != "" {
		return c.RootID
	}
	return c.ID
}

func rootRank(c ExportCategory) int {
	if c.ParentID == "" {
		return 0
	}
	return 1
}
