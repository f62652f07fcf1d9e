// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/olegiv/ocms-taxonomy/internal/model"
	"github.com/olegiv/ocms-taxonomy/internal/store"
)

// Problem kinds reported by CheckIntegrity.
const (
	ProblemNoRoot        = "no_root"
	ProblemMultipleRoots = "multiple_roots"
	ProblemMissingRoot   = "missing_root"
	ProblemMissingParent = "missing_parent"
	ProblemDetached      = "detached"
	ProblemDetachedTree  = "detached_tree"
	ProblemBounds        = "bounds"
	ProblemLevel         = "level"
	ProblemOverlap       = "overlap"
)

// Problem is one integrity finding.
type Problem struct {
	Kind   string `json:"kind"`
	NodeID string `json:"node_id,omitempty"`
	Detail string `json:"detail"`
}

// Report lists the findings of an integrity check.
type Report struct {
	Nodes    int       `json:"nodes"`
	Problems []Problem `json:"problems"`
}

// OK reports whether the tree is consistent. Detached nodes, which wait to
// be attached, do not count as corruption.
func (r Report) OK() bool {
	for _, p := range r.Problems {
		if p.Kind != ProblemDetached {
			return false
		}
	}
	return true
}

// Err returns nil for a consistent tree and an error wrapping ErrIntegrity otherwise.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	kinds := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		if p.Kind != ProblemDetached && !slices.Contains(kinds, p.Kind) {
			kinds = append(kinds, p.Kind)
		}
	}
	return fmt.Errorf("%d problem(s) [%s]: %w", len(r.Problems), strings.Join(kinds, ", "), ErrIntegrity)
}

// CheckIntegrity audits every node of the store against the nested-set rules.
func CheckIntegrity(ctx context.Context, queries *store.Queries) (Report, error) {
	all, err := queries.ListAllCategories(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("loading categories: %w", err)
	}

	report := Report{Nodes: len(all), Problems: []Problem{}}
	add := func(kind, id, format string, args ...any) {
		report.Problems = append(report.Problems, Problem{Kind: kind, NodeID: id, Detail: fmt.Sprintf(format, args...)})
	}

	byID := make(map[string]model.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	var roots, detached []string
	children := make(map[string][]model.Category)
	members := make(map[string]int)
	for _, c := range all {
		if c.RootID != "" && c.RootID != c.ID {
			members[c.RootID]++
		}
	}
	for _, c := range all {
		switch {
		case c.ParentID == "" && c.RootID == c.ID:
			roots = append(roots, c.ID)
		case c.ParentID == "" && c.RootID == "":
			add(ProblemDetached, c.ID, "%q has neither parent nor root", c.Label)
			detached = append(detached, c.ID)
		case c.ParentID == "":
			add(ProblemMissingParent, c.ID, "%q has root %s but no parent", c.Label, c.RootID)
		case c.RootID == "":
			add(ProblemMissingRoot, c.ID, "%q has parent %s but no root", c.Label, c.ParentID)
		}
		if c.Left >= c.Right {
			add(ProblemBounds, c.ID, "left %d is not below right %d", c.Left, c.Right)
		}
		if c.ParentID == "" {
			continue
		}

		parent, ok := byID[c.ParentID]
		if !ok {
			add(ProblemMissingParent, c.ID, "parent %s does not exist", c.ParentID)
			continue
		}
		children[parent.ID] = append(children[parent.ID], c)
		if !(parent.Left < c.Left && c.Right < parent.Right) || treeOf(parent) != treeOf(c) {
			add(ProblemBounds, c.ID, "[%d,%d] not inside parent [%d,%d]", c.Left, c.Right, parent.Left, parent.Right)
		}
		if c.Level != parent.Level+1 {
			add(ProblemLevel, c.ID, "level %d under parent level %d", c.Level, parent.Level)
		}
	}

	// A detached node waits to be attached; once it holds nodes or wide
	// bounds it is an unacknowledged second tree.
	for _, id := range detached {
		c := byID[id]
		if len(children[id]) > 0 || members[id] > 0 || !c.IsLeaf() {
			add(ProblemDetachedTree, id, "detached %q holds %d node(s) in [%d,%d]",
				c.Label, max(len(children[id]), members[id]), c.Left, c.Right)
		}
	}

	switch len(roots) {
	case 0:
		if len(all) > 0 {
			add(ProblemNoRoot, "", "no tree root among %d nodes", len(all))
		}
	case 1:
	default:
		slices.Sort(roots)
		add(ProblemMultipleRoots, "", "roots: %s", strings.Join(roots, ", "))
	}

	for parentID, siblings := range children {
		slices.SortFunc(siblings, func(a, b model.Category) int { return int(a.Left - b.Left) })
		for i := 1; i < len(siblings); i++ {
			if siblings[i].Left <= siblings[i-1].Right {
				add(ProblemOverlap, siblings[i].ID, "overlaps sibling %s under %s", siblings[i-1].ID, parentID)
			}
		}
	}

	return report, nil
}
