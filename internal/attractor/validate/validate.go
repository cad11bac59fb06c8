// Package validate runs a static lint pass over a parsed Graph, surfacing
// diagnostics a caller can inspect before starting a run. The engine itself
// never requires validation to pass (SPEC_FULL.md §9 supplemental feature 1).
package validate

import (
	"fmt"
	"strings"

	"github.com/danshapiro/attractor/internal/attractor/model"
)

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	Severity Severity
	NodeID   string
	Message  string
}

func (d Diagnostic) String() string {
	if d.NodeID != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.NodeID, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

// LintRule inspects a graph and appends any diagnostics it finds.
type LintRule func(g *model.Graph) []Diagnostic

// Validate runs the built-in rules (and any extraRules) against g.
func Validate(g *model.Graph, extraRules ...LintRule) []Diagnostic {
	rules := []LintRule{
		lintEntryResolvable,
		lintTerminalReachable,
		lintDanglingEdges,
		lintConditionSyntax,
		lintGoalGateReachability,
	}
	rules = append(rules, extraRules...)

	var diags []Diagnostic
	for _, rule := range rules {
		diags = append(diags, rule(g)...)
	}
	return diags
}

// lintEntryResolvable: spec §4.3 — an entry node must exist.
func lintEntryResolvable(g *model.Graph) []Diagnostic {
	if _, ok := g.EntryNode(); ok {
		return nil
	}
	return []Diagnostic{{
		Severity: SeverityError,
		Message:  "no entry node found (need a node with shape=Mdiamond, or id 'start'/'Start')",
	}}
}

// lintTerminalReachable: spec §3 invariant (iii).
func lintTerminalReachable(g *model.Graph) []Diagnostic {
	entry, ok := g.EntryNode()
	if !ok {
		return nil // already reported by lintEntryResolvable
	}
	if g.HasReachableTerminal(entry.ID) {
		return nil
	}
	return []Diagnostic{{
		Severity: SeverityError,
		NodeID:   entry.ID,
		Message:  "no terminal node (shape=Msquare, or id 'exit'/'end') is reachable from the entry node",
	}}
}

// lintDanglingEdges: spec §3 invariant (i).
func lintDanglingEdges(g *model.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, e := range g.Edges() {
		if g.Node(e.From) == nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				NodeID:   e.From,
				Message:  fmt.Sprintf("edge source %q is not a declared node", e.From),
			})
		}
		if g.Node(e.To) == nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				NodeID:   e.To,
				Message:  fmt.Sprintf("edge target %q is not a declared node", e.To),
			})
		}
	}
	return diags
}

// lintConditionSyntax flags guard expressions with an obviously malformed
// clause (e.g. a dangling "&&", or a bare "=" with no key). It does not
// reject anything the condition evaluator can still process totally (spec
// §8's "condition evaluator totality" — evaluation never raises), so this
// is advisory, not a hard gate.
func lintConditionSyntax(g *model.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, e := range g.Edges() {
		cond := strings.TrimSpace(e.Condition)
		if cond == "" {
			continue
		}
		for _, clause := range strings.Split(cond, "&&") {
			clause = strings.TrimSpace(clause)
			if clause == "" {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					NodeID:   e.From,
					Message:  fmt.Sprintf("edge %s->%s: empty clause in condition %q", e.From, e.To, e.Condition),
				})
				continue
			}
			if clause == "=" || clause == "!=" || strings.HasPrefix(clause, "=") || strings.HasPrefix(clause, "!=") {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					NodeID:   e.From,
					Message:  fmt.Sprintf("edge %s->%s: condition clause %q has no key", e.From, e.To, clause),
				})
			}
		}
	}
	return diags
}

// LintKnownTypes builds a LintRule flagging nodes whose explicit type
// attribute names a dispatch type absent from knownTypes (e.g. a caller
// passing HandlerRegistry.KnownTypes()). Shape-derived types are never
// flagged: the fixed shape table only ever produces registered types.
func LintKnownTypes(knownTypes []string) LintRule {
	known := make(map[string]bool, len(knownTypes))
	for _, t := range knownTypes {
		known[t] = true
	}
	return func(g *model.Graph) []Diagnostic {
		var diags []Diagnostic
		for _, n := range g.Nodes() {
			t := n.TypeOverride()
			if t == "" || known[t] {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node has unknown explicit type %q; dispatch falls back to codergen", t),
			})
		}
		return diags
	}
}

// lintGoalGateReachability: a goal-gated node should have at least one
// outgoing edge so its eventual FAIL can still route somewhere, or should
// itself be a terminal; otherwise a FAIL at that node always becomes
// StageFailNoRoute before the goal gate even has a chance to fire.
func lintGoalGateReachability(g *model.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, n := range g.Nodes() {
		if !n.AttrBool("goal_gate") {
			continue
		}
		if g.IsTerminal(n.ID) {
			continue
		}
		if len(g.OutgoingEdges(n.ID)) == 0 {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				NodeID:   n.ID,
				Message:  "goal_gate node has no outgoing edges and is not terminal; a FAIL here can never reach goal-gate enforcement",
			})
		}
	}
	return diags
}
