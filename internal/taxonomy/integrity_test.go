// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-taxonomy/internal/store"
)

func problemKinds(r Report) []string {
	kinds := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		kinds = append(kinds, p.Kind)
	}
	return kinds
}

func TestCheckIntegrity_Empty(t *testing.T) {
	env := newTestEnv(t)

	report, err := CheckIntegrity(context.Background(), env.queries)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Nodes)
}

func TestCheckIntegrity_DetachedIsNotCorruption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.buildTree(t)

	_, err := env.builder.CreateIfNotExists(ctx, "loose", true)
	require.NoError(t, err)

	report, err := CheckIntegrity(ctx, env.queries)
	require.NoError(t, err)
	assert.Equal(t, []string{ProblemDetached}, problemKinds(report))
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
}

func TestCheckIntegrity_DetachedWithChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.buildTree(t)

	// A detached node that other nodes hang under, written past the builder.
	_, err := env.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID: "loose", Label: "loose", LabelKey: "loose", Left: 1, Right: 4,
	})
	require.NoError(t, err)
	_, err = env.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID: "stray", Label: "stray", LabelKey: "stray",
		RootID: "loose", ParentID: "loose", Left: 2, Right: 3, Level: 1,
	})
	require.NoError(t, err)

	report, err := CheckIntegrity(ctx, env.queries)
	require.NoError(t, err)
	assert.Contains(t, problemKinds(report), ProblemDetachedTree)
	assert.False(t, report.OK())
	assert.ErrorIs(t, report.Err(), ErrIntegrity)
}

func TestCheckIntegrity_FindsCorruption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	nodes := env.buildTree(t)

	// Second root.
	_, err := env.queries.CreateCategory(ctx, storeRoot("second"))
	require.NoError(t, err)

	// A child outside its parent's bounds, at the wrong level, overlapping b.
	_, err = env.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID: "bad", Label: "bad", LabelKey: "bad",
		RootID: nodes["root"].ID, ParentID: nodes["root"].ID,
		Left: 6, Right: 9, Level: 3,
	})
	require.NoError(t, err)

	// A child with a parent but no root.
	_, err = env.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID: "rootless", Label: "rootless", LabelKey: "rootless",
		ParentID: nodes["b"].ID, Left: 1, Right: 2, Level: 2,
	})
	require.NoError(t, err)

	report, err := CheckIntegrity(ctx, env.queries)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.ErrorIs(t, report.Err(), ErrIntegrity)

	kinds := problemKinds(report)
	for _, want := range []string{ProblemMultipleRoots, ProblemBounds, ProblemLevel, ProblemOverlap, ProblemMissingRoot} {
		assert.Contains(t, kinds, want)
	}
}
