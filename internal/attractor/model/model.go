// Package model holds the immutable, parsed representation of a pipeline
// graph: nodes, edges, and their attributes. A Graph is read-only for the
// duration of a run; only the dot parser constructs one.
package model

import (
	"fmt"
	"strings"
)

// Node is a vertex in the pipeline graph.
type Node struct {
	ID     string
	Label  string
	Shape  string
	Type   string
	Prompt string
	Attrs  map[string]any
}

// DisplayName returns the node's label, falling back to its id.
func (n *Node) DisplayName() string {
	if n == nil {
		return ""
	}
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From      string
	To        string
	Label     string
	Condition string
	Weight    int
}

// Graph is a named, parsed pipeline. Nodes are kept in an ordered map (an
// insertion-ordered slice of ids alongside the lookup map) so that "first
// node with shape X" resolution and deterministic iteration are possible.
type Graph struct {
	Name  string
	Goal  string
	Label string
	Attrs map[string]any

	nodes   map[string]*Node
	nodeIDs []string // insertion order
	edges   []*Edge
	edgeIdx map[string][]*Edge // from_node -> outgoing edges, in insertion order
}

// New creates an empty, named graph.
func New(name string) *Graph {
	return &Graph{
		Name:    name,
		Attrs:   map[string]any{},
		nodes:   map[string]*Node{},
		edgeIdx: map[string][]*Edge{},
	}
}

// AddNode registers a node. Per spec §3 invariant (v), duplicate
// declarations collapse to the first occurrence — a later AddNode call for
// an id already present is a silent no-op.
func (g *Graph) AddNode(n *Node) {
	if n == nil || n.ID == "" {
		return
	}
	if _, exists := g.nodes[n.ID]; exists {
		return
	}
	g.nodes[n.ID] = n
	g.nodeIDs = append(g.nodeIDs, n.ID)
}

// AddEdge appends an edge. Edges are not deduplicated — a chained
// declaration A -> B -> C intentionally produces two distinct Edge values.
func (g *Graph) AddEdge(e *Edge) {
	if e == nil {
		return
	}
	g.edges = append(g.edges, e)
	g.edgeIdx[e.From] = append(g.edgeIdx[e.From], e)
}

// Node looks up a node by id.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeIDs))
	for _, id := range g.nodeIDs {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// OutgoingEdges returns the edges leaving nodeID, in declaration order.
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	return g.edgeIdx[nodeID]
}

// EntryNode resolves the run's starting node per spec §4.3: first node with
// shape "Mdiamond", else a node with id "start" or "Start", else the graph
// has no valid entry.
func (g *Graph) EntryNode() (*Node, bool) {
	for _, id := range g.nodeIDs {
		if n := g.nodes[id]; n.Shape == "Mdiamond" {
			return n, true
		}
	}
	if n, ok := g.nodes["start"]; ok {
		return n, true
	}
	if n, ok := g.nodes["Start"]; ok {
		return n, true
	}
	return nil, false
}

// IsTerminal reports whether nodeID is a terminal node per spec §4.3: shape
// "Msquare", or an id matching "exit"/"end" case-insensitively.
func (g *Graph) IsTerminal(nodeID string) bool {
	n := g.nodes[nodeID]
	if n == nil {
		return false
	}
	if n.Shape == "Msquare" {
		return true
	}
	lower := strings.ToLower(nodeID)
	return lower == "exit" || lower == "end"
}

// HasReachableTerminal reports whether any terminal node is reachable from
// startID by following edges (ignoring guards — spec §3 invariant (iii) is
// a structural, not semantic, reachability check).
func (g *Graph) HasReachableTerminal(startID string) bool {
	seen := map[string]bool{}
	queue := []string{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if g.IsTerminal(id) {
			return true
		}
		for _, e := range g.OutgoingEdges(id) {
			if !seen[e.To] {
				queue = append(queue, e.To)
			}
		}
	}
	return false
}

// Validate checks the structural invariants from spec §3: every edge
// endpoint names an existing node, an entry node exists, and at least one
// terminal is reachable from it.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("model: edge references unknown source node %q", e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("model: edge references unknown target node %q", e.To)
		}
	}
	entry, ok := g.EntryNode()
	if !ok {
		return fmt.Errorf("model: no entry node found (need shape=Mdiamond or id 'start'/'Start')")
	}
	if !g.HasReachableTerminal(entry.ID) {
		return fmt.Errorf("model: no terminal node reachable from entry %q", entry.ID)
	}
	return nil
}

// TypeOverride returns the node's explicit type attribute, if any.
func (n *Node) TypeOverride() string {
	if n == nil {
		return ""
	}
	return n.Type
}

// AttrString reads a free-form attribute as a string, stringifying non-string
// values via fmt.Sprint. Missing keys return "".
func (n *Node) AttrString(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	v, ok := n.Attrs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// AttrBool reads a free-form attribute as a truthy boolean: the boolean
// value itself, a non-zero number, or a non-empty, non-"false"/"0" string.
func (n *Node) AttrBool(key string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	v, ok := n.Attrs[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0":
			return false
		default:
			return true
		}
	default:
		return true
	}
}
