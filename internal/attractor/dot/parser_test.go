package dot

import "testing"

func TestParseBasicHeaderAndNodes(t *testing.T) {
	src := `
digraph Pipeline {
  graph [goal="ship it"];
  start [shape=Mdiamond];
  work [shape=box type=codergen label="Do work"];
  end [shape=Msquare];
  start -> work;
  work -> end;
}
`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Name != "Pipeline" {
		t.Errorf("Name = %q, want Pipeline", g.Name)
	}
	if g.Goal != "ship it" {
		t.Errorf("Goal = %q, want %q", g.Goal, "ship it")
	}
	if len(g.Nodes()) != 3 {
		t.Fatalf("len(Nodes()) = %d, want 3", len(g.Nodes()))
	}
	work := g.Node("work")
	if work == nil || work.Type != "codergen" || work.Label != "Do work" {
		t.Fatalf("work node = %+v", work)
	}
	if len(g.OutgoingEdges("start")) != 1 || g.OutgoingEdges("start")[0].To != "work" {
		t.Fatalf("start edges = %+v", g.OutgoingEdges("start"))
	}
}

func TestParseChainedEdgeSharesAttrs(t *testing.T) {
	src := `digraph G {
  a -> b -> c [label="next" weight=3];
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("len(Edges()) = %d, want 2", len(edges))
	}
	for _, e := range edges {
		if e.Label != "next" || e.Weight != 3 {
			t.Errorf("edge %+v did not inherit chain attrs", e)
		}
	}
	if edges[0].From != "a" || edges[0].To != "b" || edges[1].From != "b" || edges[1].To != "c" {
		t.Fatalf("unexpected chain order: %+v", edges)
	}
}

func TestParseDuplicateNodeCollapsesToFirst(t *testing.T) {
	src := `digraph G {
  a [label="first"];
  a [label="second"];
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Nodes()) != 1 {
		t.Fatalf("len(Nodes()) = %d, want 1", len(g.Nodes()))
	}
	if g.Node("a").Label != "first" {
		t.Errorf("Node(a).Label = %q, want %q", g.Node("a").Label, "first")
	}
}

func TestParseMalformedHeaderReturnsError(t *testing.T) {
	_, err := Parse(`graph G { a -> b; }`)
	if err == nil {
		t.Fatal("Parse: expected error for missing digraph keyword, got nil")
	}
}

func TestParseNodeDeclFollowedByEdgeIsTreatedAsEdge(t *testing.T) {
	src := `digraph G {
  a [shape=box];
  a -> b;
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.OutgoingEdges("a")) != 1 {
		t.Fatalf("expected a to have one outgoing edge, got %+v", g.OutgoingEdges("a"))
	}
	// "a" must still exist as a node from its own declaration.
	if g.Node("a") == nil {
		t.Fatalf("node a missing")
	}
	// "b" is only ever referenced as an edge target; the parser does not
	// synthesize it as a node — that is the graph validator's job.
	if g.Node("b") != nil {
		t.Fatalf("node b should not be auto-created by the parser")
	}
}

func TestParseToleratesMalformedFragment(t *testing.T) {
	src := `digraph G {
  @@@ garbage !!! ;
  a -> b;
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.OutgoingEdges("a")) != 1 {
		t.Fatalf("expected parser to recover and still parse a -> b, got %+v", g.Edges())
	}
}

func TestParseStripsLineAndBlockComments(t *testing.T) {
	src := `digraph G { // header
  a -> b; /* trailing
  multi-line */
  b -> c;
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Edges()) != 2 {
		t.Fatalf("len(Edges()) = %d, want 2", len(g.Edges()))
	}
}

func TestParseConditionAndGoalGateAttrs(t *testing.T) {
	src := `digraph G {
  decision [shape=diamond];
  done [shape=Msquare goal_gate=true];
  decision -> done [condition="outcome = \"success\""];
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edges := g.OutgoingEdges("decision")
	if len(edges) != 1 || edges[0].Condition != `outcome = "success"` {
		t.Fatalf("edge condition = %+v", edges)
	}
	done := g.Node("done")
	if done == nil || !done.AttrBool("goal_gate") {
		t.Fatalf("done.goal_gate = %+v", done)
	}
}

func TestParseGraphDefaultsApplyToNodesAndEdges(t *testing.T) {
	src := `digraph G {
  node [shape=box];
  edge [weight=5];
  a; b;
  a -> b;
}`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Node("a").Shape != "box" || g.Node("b").Shape != "box" {
		t.Fatalf("node defaults not applied: a=%+v b=%+v", g.Node("a"), g.Node("b"))
	}
	if g.Edges()[0].Weight != 5 {
		t.Fatalf("edge default weight not applied: %+v", g.Edges()[0])
	}
}
