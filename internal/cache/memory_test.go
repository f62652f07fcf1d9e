// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{DefaultTTL: ttl, MaxSize: maxSize})
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 100)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "key1")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Error("expected key1 to exist")
	}

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key1"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := newTestMemoryCache(20*time.Millisecond, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 0)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)
	time.Sleep(40 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("expected short to expire, got %v", err)
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("expected long to survive, got %v", err)
	}
}

func TestMemoryCache_MaxSizeEvictsSoonestExpiry(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 2)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "b", []byte("2"), time.Hour)
	_ = cache.Set(ctx, "c", []byte("3"), time.Hour)

	if has, _ := cache.Has(ctx, "a"); has {
		t.Error("expected a to be evicted")
	}
	for _, k := range []string{"b", "c"} {
		if has, _ := cache.Has(ctx, k); !has {
			t.Errorf("expected %s to remain", k)
		}
	}
	if n := cache.Stats().Items; n != 2 {
		t.Errorf("items = %d, want 2", n)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "tree:1", []byte("x"), 0)
	_ = cache.Set(ctx, "tree:2", []byte("x"), 0)
	_ = cache.Set(ctx, "other", []byte("x"), 0)

	if err := cache.DeleteByPrefix(ctx, "tree:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if n := cache.Stats().Items; n != 1 {
		t.Errorf("items = %d, want 1", n)
	}

	_ = cache.Clear(ctx)
	if has, _ := cache.Has(ctx, "other"); has {
		t.Error("expected Clear to remove everything")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "k", []byte("abc"), 0)
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "missing")

	s := cache.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.HitRate != 50 {
		t.Errorf("hit rate = %v, want 50", s.HitRate)
	}
	if s.Size != 3 {
		t.Errorf("size = %d, want 3", s.Size)
	}

	cache.ResetStats()
	if s := cache.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("value")
	_ = cache.Set(ctx, "k", original, 0)
	original[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "value" {
		t.Errorf("stored value mutated: %s", got)
	}
	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "value" {
		t.Errorf("returned value aliases storage: %s", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 50)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d-%d", n, j%10)
				_ = cache.Set(ctx, key, []byte("v"), 0)
				_, _ = cache.Get(ctx, key)
				_ = cache.DeleteByPrefix(ctx, fmt.Sprintf("k%d-", n))
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, CleanupInterval: time.Millisecond})
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := cache.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if err := cache.Set(ctx, "k", nil, 0); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
}
