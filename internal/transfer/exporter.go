// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
	"github.com/olegiv/ocms-taxonomy/internal/taxonomy"
)

// Exporter handles exporting the category tree to JSON.
type Exporter struct {
	store  *store.Queries
	repo   *taxonomy.Repository
	logger *slog.Logger
}

// NewExporter creates a new Exporter instance.
func NewExporter(queries *store.Queries, repo *taxonomy.Repository, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: queries, repo: repo, logger: logger}
}

// Export generates an ExportData structure based on the provided options.
// Categories are listed tree by tree in left-bound order.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportData, error) {
	data := &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Categories: []ExportCategory{},
	}

	all, err := e.store.ListAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for _, c := range all {
		data.Categories = append(data.Categories, exportCategory(c))
	}

	if opts.IncludeTree {
		tree, err := e.repo.MaterializeTree(ctx, nil)
		if err != nil {
			e.logger.Warn("failed to export tree", "error", err)
		}
		data.Tree = tree
	}

	if opts.IncludeLinks {
		links, err := e.store.ListAllCategoryLinks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list links: %w", err)
		}
		data.Links = make([]ExportLink, 0, len(links))
		for _, l := range links {
			data.Links = append(data.Links, ExportLink{
				CategoryID: l.CategoryID,
				ContentID:  l.ContentID,
				CreatedAt:  l.CreatedAt.UTC(),
			})
		}
	}

	e.logger.Info("export generated", "categories", len(data.Categories), "links", len(data.Links))
	return data, nil
}

// ExportToWriter writes the export as JSON to the provided writer.
func (e *Exporter) ExportToWriter(ctx context.Context, opts ExportOptions, w io.Writer) error {
	data, err := e.Export(ctx, opts)
	if err != nil {
		return err
	}
	return writeJSON(w, data)
}

// ExportToFile writes the export as JSON to a file.
func (e *Exporter) ExportToFile(ctx context.Context, opts ExportOptions, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return e.ExportToWriter(ctx, opts, f)
}

// ExportArchive writes a zip archive holding tree.json, categories.json and
// links.json. Sections excluded by opts are left out.
func (e *Exporter) ExportArchive(ctx context.Context, opts ExportOptions, w io.Writer) error {
	data, err := e.Export(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to generate export: %w", err)
	}

	zipWriter := zip.NewWriter(w)

	if data.Tree != nil {
		if err := addJSONToZip(zipWriter, TreeFile, data.Tree); err != nil {
			return err
		}
	}
	header := *data
	header.Tree, header.Links = nil, nil
	if err := addJSONToZip(zipWriter, CategoriesFile, header); err != nil {
		return err
	}
	if opts.IncludeLinks {
		if err := addJSONToZip(zipWriter, LinksFile, data.Links); err != nil {
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// ExportArchiveToFile writes the zip archive to a file.
func (e *Exporter) ExportArchiveToFile(ctx context.Context, opts ExportOptions, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return e.ExportArchive(ctx, opts, f)
}

// addJSONToZip adds one indented JSON document to the archive.
func addJSONToZip(zipWriter *zip.Writer, name string, v any) error {
	entry, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", name, err)
	}
	if err := writeJSON(entry, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func exportCategory(c model.Category) ExportCategory {
	ec := ExportCategory{
		ID:       c.ID,
		Label:    c.Label,
		RootID:   c.RootID,
		ParentID: c.ParentID,
		Left:     c.Left,
		Right:    c.Right,
		Level:    c.Level,
	}
	if c.CreatedAt.Valid {
		t := c.CreatedAt.Time.UTC()
		ec.CreatedAt = &t
	}
	if c.ModifiedAt.Valid {
		t := c.ModifiedAt.Time.UTC()
		ec.ModifiedAt = &t
	}
	return ec
}
