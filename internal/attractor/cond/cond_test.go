package cond

import (
	"strings"
	"testing"

	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

func TestEvaluate(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("tests_passed", true)
	ctx.Set("loop_state", "active")

	out := runtime.Outcome{Status: runtime.StatusSuccess, PreferredLabel: "Yes"}

	cases := []struct {
		cond string
		want bool
	}{
		{"", true},
		{"   ", true},
		{`outcome = "success"`, true},
		{`outcome != "fail"`, true},
		{`preferred_label = "Yes"`, true},
		{`context.tests_passed = "true"`, true},
		{`context.loop_state != "exhausted"`, true},
		{`outcome = "fail"`, false},
		{`context.missing = "foo"`, false},
		{"tests_passed", true},
		{"missing_key", false},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.cond, out, ctx); got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.cond, got, tc.want)
		}
	}
}

func TestEvaluateCustomOutcome(t *testing.T) {
	ctx := runtime.NewContext()
	out := runtime.Outcome{Status: runtime.StageStatus("process")}

	cases := []struct {
		cond string
		want bool
	}{
		{`outcome = "process"`, true},
		{`outcome = "done"`, false},
		{`outcome != "process"`, false},
		{`outcome != "done"`, true},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.cond, out, ctx); got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.cond, got, tc.want)
		}
	}
}

func TestEvaluateConjunction(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("a", "1")
	out := runtime.Outcome{Status: runtime.StatusSuccess}

	if !Evaluate(`outcome = "success" && context.a = "1"`, out, ctx) {
		t.Errorf("conjunction of true clauses = false, want true")
	}
	if Evaluate(`outcome = "success" && context.a = "2"`, out, ctx) {
		t.Errorf("conjunction with one false clause = true, want false")
	}
}

func TestEvaluateNeverPanics(t *testing.T) {
	out := runtime.Outcome{}
	weird := []string{
		"=", "!=", "&&", "a=", "=b", "a!=", strings.Repeat("x=y&&", 50),
	}
	for _, w := range weird {
		_ = Evaluate(w, out, nil)
	}
}

func TestEvaluateContextDotFallback(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("context.weird", "val")
	out := runtime.Outcome{}
	if !Evaluate(`context.weird = "val"`, out, ctx) {
		t.Errorf("expected fallback lookup of literal context.weird key to succeed")
	}
}
