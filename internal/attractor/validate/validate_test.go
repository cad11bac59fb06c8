package validate

import (
	"testing"

	"github.com/danshapiro/attractor/internal/attractor/dot"
)

func hasSeverity(diags []Diagnostic, sev Severity) bool {
	for _, d := range diags {
		if d.Severity == sev {
			return true
		}
	}
	return false
}

func TestValidateHappyPathHasNoErrors(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		a [shape=box];
		end [shape=Msquare];
		start -> a;
		a -> end;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g)
	if hasSeverity(diags, SeverityError) {
		t.Errorf("unexpected errors: %+v", diags)
	}
}

func TestValidateMissingEntry(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		a [shape=box];
		end [shape=Msquare];
		a -> end;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g)
	if !hasSeverity(diags, SeverityError) {
		t.Errorf("expected entry-node error, got %+v", diags)
	}
}

func TestValidateNoReachableTerminal(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		a [shape=box];
		start -> a;
		a -> start;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g)
	if !hasSeverity(diags, SeverityError) {
		t.Errorf("expected unreachable-terminal error, got %+v", diags)
	}
}

func TestValidateGoalGateDeadEnd(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		critical [shape=box goal_gate=true];
		end [shape=Msquare];
		start -> critical;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.NodeID == "critical" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic for goal_gate node 'critical', got %+v", diags)
	}
}

func TestLintKnownTypesFlagsUnregisteredType(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		a [shape=box type=exotic];
		end [shape=Msquare];
		start -> a;
		a -> end;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g, LintKnownTypes([]string{"start", "exit", "codergen"}))
	found := false
	for _, d := range diags {
		if d.NodeID == "a" && d.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for node 'a' with unknown type 'exotic', got %+v", diags)
	}
}

func TestLintKnownTypesAllowsRegisteredType(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		a [shape=box type=codergen];
		end [shape=Msquare];
		start -> a;
		a -> end;
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g, LintKnownTypes([]string{"start", "exit", "codergen"}))
	for _, d := range diags {
		if d.NodeID == "a" {
			t.Errorf("unexpected diagnostic for node 'a': %+v", d)
		}
	}
}

func TestValidateMalformedConditionClause(t *testing.T) {
	g, err := dot.Parse(`digraph G {
		start [shape=Mdiamond];
		a [shape=box];
		end [shape=Msquare];
		start -> a;
		a -> end [condition="= bad"];
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := Validate(g)
	if !hasSeverity(diags, SeverityWarning) {
		t.Errorf("expected warning for malformed condition clause, got %+v", diags)
	}
}
