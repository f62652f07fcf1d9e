// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

type testItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func TestTypedCache_BasicOperations(t *testing.T) {
	mem := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	cache := NewTypedCache[testItem](mem, "item:", time.Hour)
	ctx := context.Background()

	item := &testItem{ID: "1", Label: "Sport"}
	if err := cache.Set(ctx, "1", item); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := cache.Get(ctx, "1")
	if !found {
		t.Fatal("expected to find item 1")
	}
	if *got != *item {
		t.Errorf("got %+v, want %+v", got, item)
	}

	if has, _ := mem.Has(ctx, "item:1"); !has {
		t.Error("expected namespaced key in backing cache")
	}

	if err := cache.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := cache.Get(ctx, "1"); found {
		t.Error("expected item 1 to be deleted")
	}
}

func TestTypedCache_UndecodableIsMiss(t *testing.T) {
	mem := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	_ = mem.Set(ctx, "item:bad", []byte("{not json"), 0)
	cache := NewTypedCache[testItem](mem, "item:", time.Hour)

	if _, found := cache.Get(ctx, "bad"); found {
		t.Error("expected undecodable entry to be a miss")
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	mem := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	cache := NewTypedCache[testItem](mem, "item:", time.Hour)
	ctx := context.Background()

	calls := 0
	load := func() (*testItem, error) {
		calls++
		return &testItem{ID: "2", Label: "Music"}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, "2", load)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if got.Label != "Music" {
			t.Errorf("label = %q", got.Label)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	wantErr := errors.New("boom")
	if _, err := cache.GetOrSet(ctx, "3", func() (*testItem, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("expected loader error, got %v", err)
	}
}

func TestTreeCache_Invalidate(t *testing.T) {
	mem := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	trees := NewTreeCache(mem, time.Hour)
	summary := &model.TreeSummary{
		ID:    "root",
		Label: "Root",
		Children: []model.TreeSummary{
			{ID: "a", Level: 1, Label: "A", Children: []model.TreeSummary{}},
		},
	}
	if err := trees.Set(ctx, "root", summary); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = mem.Set(ctx, "unrelated", []byte("x"), 0)

	got, found := trees.Get(ctx, "root")
	if !found || len(got.Children) != 1 || got.Children[0].Label != "A" {
		t.Fatalf("unexpected summary %+v", got)
	}

	if err := trees.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, found := trees.Get(ctx, "root"); found {
		t.Error("expected tree to be invalidated")
	}
	if has, _ := mem.Has(ctx, "unrelated"); !has {
		t.Error("expected unrelated key to survive")
	}
}
