// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"time"

	"github.com/olegiv/ocms-taxonomy/internal/model"
)

// treeNamespace prefixes materialized tree keys.
const treeNamespace = "tree:"

// TreeCache holds materialized tree summaries keyed by the id of their top node.
type TreeCache struct {
	*TypedCache[model.TreeSummary]
}

// NewTreeCache returns a TreeCache on top of c.
func NewTreeCache(c Cacher, ttl time.Duration) *TreeCache {
	return &TreeCache{TypedCache: NewTypedCache[model.TreeSummary](c, treeNamespace, ttl)}
}

// Invalidate drops every cached tree; a structural write can change the
// summary of every ancestor.
func (t *TreeCache) Invalidate(ctx context.Context) error {
	return t.Purge(ctx)
}
