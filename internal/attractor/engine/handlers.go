package engine

import (
	"strings"

	"github.com/danshapiro/attractor/internal/attractor/model"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// Execution bundles everything a Handler needs to do its work on one node.
type Execution struct {
	Graph    *model.Graph
	Context  *runtime.Context
	LogsRoot string
	NodeDir  string
	Engine   *Engine
}

// Handler executes one stage's work for a node and returns its Outcome.
type Handler interface {
	Execute(node *model.Node, exec *Execution) (runtime.Outcome, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(node *model.Node, exec *Execution) (runtime.Outcome, error)

func (f HandlerFunc) Execute(node *model.Node, exec *Execution) (runtime.Outcome, error) {
	return f(node, exec)
}

// shapeToType is the fixed shape→type lookup table from spec §4.4.
var shapeToType = map[string]string{
	"Mdiamond":      "start",
	"Msquare":       "exit",
	"box":           "codergen",
	"parallelogram": "tool",
	"diamond":       "conditional",
	"hexagon":       "wait.human",
	"component":     "parallel",
	"tripleoctagon": "parallel.fan_in",
	"house":         "stack.manager_loop",
}

// resolveType returns a node's dispatch type: its explicit type attribute,
// else the shape-derived type, else "codergen".
func resolveType(n *model.Node) string {
	if t := n.TypeOverride(); t != "" {
		return t
	}
	if t, ok := shapeToType[n.Shape]; ok {
		return t
	}
	return "codergen"
}

// HandlerRegistry maps a node's dispatch type to the Handler that runs it.
type HandlerRegistry struct {
	handlers map[string]Handler
	fallback Handler
}

// NewDefaultRegistry builds a registry with the built-in handlers from
// spec §4.4: start/exit/conditional are no-op-SUCCESS stubs, so are the
// reserved-but-sequential parallel/parallel.fan_in/wait.human/
// stack.manager_loop types (spec §5), plus codergen and tool.
func NewDefaultRegistry(codergen *CodergenHandler, tool *ToolHandler) *HandlerRegistry {
	noop := HandlerFunc(func(node *model.Node, exec *Execution) (runtime.Outcome, error) {
		return runtime.Outcome{Status: runtime.StatusSuccess}, nil
	})

	r := &HandlerRegistry{handlers: map[string]Handler{}, fallback: codergen}
	r.Register("start", noop)
	r.Register("exit", noop)
	r.Register("conditional", noop)
	r.Register("parallel", noop)
	r.Register("parallel.fan_in", noop)
	r.Register("wait.human", noop)
	r.Register("stack.manager_loop", noop)
	r.Register("codergen", codergen)
	r.Register("tool", tool)
	return r
}

// Register installs a handler for a dispatch type, overwriting any
// existing registration.
func (r *HandlerRegistry) Register(stageType string, h Handler) {
	r.handlers[stageType] = h
}

// KnownTypes lists every dispatch type with a registered handler.
func (r *HandlerRegistry) KnownTypes() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Resolve returns the handler for a node, falling back to codergen for any
// unregistered (and therefore "unknown") type.
func (r *HandlerRegistry) Resolve(n *model.Node) Handler {
	t := resolveType(n)
	if h, ok := r.handlers[t]; ok {
		return h
	}
	return r.fallback
}

// normalizeLabel implements the accelerator-prefix stripping from spec §4.6:
// trim, lowercase, then strip a leading "[X] ", "X) ", or "X - " prefix.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "] "); idx > 0 && idx <= 2 {
			return s[idx+2:]
		}
	}
	if len(s) >= 3 && s[1] == ')' && s[2] == ' ' {
		return s[3:]
	}
	if len(s) >= 4 && s[1] == ' ' && s[2] == '-' && s[3] == ' ' {
		return s[4:]
	}
	return s
}
