package engine

import (
	"sort"

	"github.com/danshapiro/attractor/internal/attractor/cond"
	"github.com/danshapiro/attractor/internal/attractor/model"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// byWeightThenTarget orders edges by (weight DESC, to_node ASC), the tie
// break used throughout spec §4.6.
func byWeightThenTarget(edges []*model.Edge) *model.Edge {
	if len(edges) == 0 {
		return nil
	}
	best := make([]*model.Edge, len(edges))
	copy(best, edges)
	sort.SliceStable(best, func(i, j int) bool {
		if best[i].Weight != best[j].Weight {
			return best[i].Weight > best[j].Weight
		}
		return best[i].To < best[j].To
	})
	return best[0]
}

// SelectEdge implements the five-tier priority from spec §4.6 as a pure
// function with no engine state, so the determinism property in spec §8 is
// directly unit-testable.
func SelectEdge(node *model.Node, outcome runtime.Outcome, ctx *runtime.Context, g *model.Graph) *model.Edge {
	edges := g.OutgoingEdges(node.ID)
	if len(edges) == 0 {
		return nil
	}

	// 1. Condition-matched.
	var matched []*model.Edge
	for _, e := range edges {
		if e.Condition != "" && cond.Evaluate(e.Condition, outcome, ctx) {
			matched = append(matched, e)
		}
	}
	if len(matched) > 0 {
		return byWeightThenTarget(matched)
	}

	// 2. Preferred label.
	if outcome.PreferredLabel != "" {
		want := normalizeLabel(outcome.PreferredLabel)
		for _, e := range edges {
			if normalizeLabel(e.Label) == want {
				return e
			}
		}
	}

	// 3. Suggested next ids, in order.
	for _, id := range outcome.SuggestedNextIDs {
		for _, e := range edges {
			if e.To == id {
				return e
			}
		}
	}

	// 4. Unconditional fallback.
	var unconditional []*model.Edge
	for _, e := range edges {
		if e.Condition == "" {
			unconditional = append(unconditional, e)
		}
	}
	if len(unconditional) > 0 {
		return byWeightThenTarget(unconditional)
	}

	// 5. Any fallback.
	return byWeightThenTarget(edges)
}

// SelectFailEdge implements the FAIL-routing rule from spec §4.5 step (g):
// only the condition-matched set is consulted, never preferred_label or
// suggested_next_ids (spec §9 design note: "fail-routing is guard-only").
func SelectFailEdge(node *model.Node, outcome runtime.Outcome, ctx *runtime.Context, g *model.Graph) *model.Edge {
	edges := g.OutgoingEdges(node.ID)
	var matched []*model.Edge
	for _, e := range edges {
		if e.Condition != "" && cond.Evaluate(e.Condition, outcome, ctx) {
			matched = append(matched, e)
		}
	}
	return byWeightThenTarget(matched)
}
