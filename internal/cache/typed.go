// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TypedCache stores JSON-encoded values of one type under a key namespace.
type TypedCache[T any] struct {
	cache      Cacher
	namespace  string
	defaultTTL time.Duration
}

// NewTypedCache wraps cache, prefixing every key with namespace.
func NewTypedCache[T any](cache Cacher, namespace string, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{
		cache:      cache,
		namespace:  namespace,
		defaultTTL: defaultTTL,
	}
}

// Get returns the value and true if found. Undecodable entries count as misses.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.cache.Get(ctx, c.namespace+key)
	if err != nil {
		return nil, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return &value, true
}

// Set stores a value with the default TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, c.namespace+key, data, c.defaultTTL)
}

// Delete removes one key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, c.namespace+key)
}

// Purge removes every key of the namespace.
func (c *TypedCache[T]) Purge(ctx context.Context) error {
	return c.cache.DeleteByPrefix(ctx, c.namespace)
}

// GetOrSet returns the cached value or computes and stores it.
// Store failures are ignored; the computed value is still returned.
func (c *TypedCache[T]) GetOrSet(ctx context.Context, key string, fn func() (*T, error)) (*T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, key, value)
	return value, nil
}
