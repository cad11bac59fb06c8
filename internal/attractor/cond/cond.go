// Package cond evaluates edge guard expressions against a stage's Outcome
// and the run's Context (spec §4.2).
package cond

import (
	"fmt"
	"strings"

	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// Evaluate evaluates condition, a conjunction ("&&") of clauses, each of
// which is one of:
//
//	key = "value"   equality
//	key != "value"  inequality
//	key             truthiness of resolve(key)
//
// An empty (or all-whitespace) condition evaluates to true. Evaluation
// never raises: missing keys resolve to "".
func Evaluate(condition string, outcome runtime.Outcome, ctx *runtime.Context) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}
	for _, clause := range strings.Split(condition, "&&") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if !evaluateClause(clause, outcome, ctx) {
			return false
		}
	}
	return true
}

func evaluateClause(clause string, outcome runtime.Outcome, ctx *runtime.Context) bool {
	if idx := strings.Index(clause, "!="); idx >= 0 {
		key := strings.TrimSpace(clause[:idx])
		val := unquote(strings.TrimSpace(clause[idx+2:]))
		return resolveKey(key, outcome, ctx) != val
	}
	if idx := strings.Index(clause, "="); idx >= 0 {
		key := strings.TrimSpace(clause[:idx])
		val := unquote(strings.TrimSpace(clause[idx+1:]))
		return resolveKey(key, outcome, ctx) == val
	}
	// Bare key: truthiness of resolve(key). Spec §4.2 defines this as
	// "non-empty string is true" with no further coercion.
	return resolveKey(clause, outcome, ctx) != ""
}

// resolveKey implements the key resolution order from spec §4.2.
func resolveKey(key string, outcome runtime.Outcome, ctx *runtime.Context) string {
	key = strings.TrimSpace(key)
	switch key {
	case "outcome":
		return string(outcome.Status)
	case "preferred_label":
		return outcome.PreferredLabel
	}
	if strings.HasPrefix(key, "context.") {
		name := strings.TrimSpace(key[len("context."):])
		if ctx != nil {
			if v, ok := ctx.Get(name); ok {
				return stringify(v)
			}
			// Fallback: some graphs set the literal "context.<name>" key.
			if v, ok := ctx.Get(key); ok {
				return stringify(v)
			}
		}
		return ""
	}
	if ctx != nil {
		if v, ok := ctx.Get(key); ok {
			return stringify(v)
		}
	}
	return ""
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
