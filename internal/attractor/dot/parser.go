// Package dot implements a parser for the constrained DOT dialect used to
// describe Attractor pipelines (spec §4.1): a single digraph block
// containing graph/node/edge attribute defaults, node declarations, and
// (possibly chained) edge declarations.
package dot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danshapiro/attractor/internal/attractor/model"
)

// Parse parses DOT source into a Graph. It tokenizes once, then walks the
// token stream statement by statement — not the "try-node-then-edge regex"
// heuristic of a line-oriented scanner (spec §9 Design Notes).
func Parse(source string) (*model.Graph, error) {
	clean := stripComments(source)
	lx := newLexer(clean)
	p := &parser{lx: lx}

	if err := p.expectIdent("digraph"); err != nil {
		return nil, fmt.Errorf("dot: %w", err)
	}
	nameTok, err := p.next()
	if err != nil {
		return nil, fmt.Errorf("dot: %w", err)
	}
	if nameTok.kind != tokenIdent {
		return nil, fmt.Errorf("dot: expected graph identifier, got %q", nameTok.lit)
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, fmt.Errorf("dot: %w", err)
	}

	g := model.New(nameTok.lit)
	p.parseStatements(g)
	return g, nil
}

// stripComments removes "// ..." line comments and "/* ... */" block
// comments, leaving quoted string contents untouched.
func stripComments(src string) string {
	var b strings.Builder
	runes := []rune(src)
	i := 0
	inString := false
	for i < len(runes) {
		r := runes[i]
		if inString {
			b.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				b.WriteRune(runes[i+1])
				i += 2
				continue
			}
			if r == '"' {
				inString = false
			}
			i++
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			i++
			continue
		}
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			continue
		}
		if r == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i += 2
			continue
		}
		b.WriteRune(r)
		i++
	}
	return b.String()
}

type parser struct {
	lx    *lexer
	peek  token
	ready bool
}

func (p *parser) fill() {
	if p.ready {
		return
	}
	tok, err := p.lx.next()
	for err != nil {
		// Lexer errors are treated as an unrecognized single character;
		// skip it and keep scanning (spec §4.1: forward progress guaranteed).
		p.lx.pos++
		tok, err = p.lx.next()
	}
	p.peek = tok
	p.ready = true
}

func (p *parser) next() (token, error) {
	p.fill()
	tok := p.peek
	p.ready = false
	return tok, nil
}

func (p *parser) expectSymbol(sym string) error {
	tok, _ := p.next()
	if tok.kind != tokenSymbol || tok.lit != sym {
		return fmt.Errorf("expected %q, got %q at %d", sym, tok.lit, tok.pos)
	}
	return nil
}

func (p *parser) expectIdent(lit string) error {
	tok, _ := p.next()
	if tok.kind != tokenIdent || tok.lit != lit {
		return fmt.Errorf("expected %q, got %q at %d", lit, tok.lit, tok.pos)
	}
	return nil
}

// parseStatements consumes statements until the matching '}' (or EOF).
// A statement that cannot be parsed is skipped by advancing one token,
// guaranteeing forward progress rather than aborting the whole parse.
func (p *parser) parseStatements(g *model.Graph) {
	nodeDefaults := map[string]any{}
	edgeDefaults := map[string]any{}

	for {
		p.fill()
		if p.peek.kind == tokenEOF {
			return
		}
		if p.peek.kind == tokenSymbol && p.peek.lit == "}" {
			_, _ = p.next()
			return
		}
		if p.peek.kind == tokenSymbol && p.peek.lit == ";" {
			_, _ = p.next()
			continue
		}
		if p.peek.kind != tokenIdent {
			// Unrecognized fragment: skip one token and keep going.
			_, _ = p.next()
			continue
		}

		tok, _ := p.next()

		switch tok.lit {
		case "graph":
			if attrs, ok := p.tryParseAttrBlock(); ok {
				for k, v := range attrs {
					g.Attrs[k] = v
					switch k {
					case "goal":
						g.Goal = fmt.Sprint(v)
					case "label":
						g.Label = fmt.Sprint(v)
					}
				}
			}
			continue
		case "node":
			if attrs, ok := p.tryParseAttrBlock(); ok {
				for k, v := range attrs {
					nodeDefaults[k] = v
				}
			}
			continue
		case "edge":
			if attrs, ok := p.tryParseAttrBlock(); ok {
				for k, v := range attrs {
					edgeDefaults[k] = v
				}
			}
			continue
		}

		// tok.lit is a bare identifier: could be a graph attr decl
		// (key = value), an edge statement (id -> id ...), or a node
		// statement (id [...] or bare id). Edges take precedence over a
		// node declaration with the same leading identifier (spec §4.1
		// tie policy).
		p.fill()
		switch {
		case p.peek.kind == tokenSymbol && p.peek.lit == "=":
			_, _ = p.next()
			valTok, _ := p.next()
			g.Attrs[tok.lit] = parseValue(valTok)
			switch tok.lit {
			case "goal":
				g.Goal = fmt.Sprint(g.Attrs[tok.lit])
			case "label":
				g.Label = fmt.Sprint(g.Attrs[tok.lit])
			}
			p.consumeOptionalSemicolon()

		case p.peek.kind == tokenSymbol && p.peek.lit == "->":
			p.parseEdgeChain(g, tok.lit, edgeDefaults)

		default:
			p.parseNodeDecl(g, tok.lit, nodeDefaults)
		}
	}
}

func (p *parser) parseEdgeChain(g *model.Graph, first string, edgeDefaults map[string]any) {
	chain := []string{first}
	for {
		p.fill()
		if !(p.peek.kind == tokenSymbol && p.peek.lit == "->") {
			break
		}
		_, _ = p.next() // consume "->"
		toTok, _ := p.next()
		if toTok.kind != tokenIdent {
			break
		}
		chain = append(chain, toTok.lit)
		p.fill()
	}

	attrs := map[string]any{}
	p.fill()
	if p.peek.kind == tokenSymbol && p.peek.lit == "[" {
		if parsed, ok := p.tryParseAttrBlock(); ok {
			attrs = parsed
		}
	}

	for i := 0; i+1 < len(chain); i++ {
		e := &model.Edge{From: chain[i], To: chain[i+1]}
		applyEdgeAttrs(e, edgeDefaults)
		applyEdgeAttrs(e, attrs)
		g.AddEdge(e)
	}
	p.consumeOptionalSemicolon()
}

func applyEdgeAttrs(e *model.Edge, attrs map[string]any) {
	if v, ok := attrs["label"]; ok {
		e.Label = fmt.Sprint(v)
	}
	if v, ok := attrs["condition"]; ok {
		e.Condition = fmt.Sprint(v)
	}
	if v, ok := attrs["weight"]; ok {
		e.Weight = toInt(v)
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (p *parser) parseNodeDecl(g *model.Graph, id string, nodeDefaults map[string]any) {
	attrs := map[string]any{}
	p.fill()
	if p.peek.kind == tokenSymbol && p.peek.lit == "[" {
		if parsed, ok := p.tryParseAttrBlock(); ok {
			attrs = parsed
		}
	}
	p.consumeOptionalSemicolon()

	merged := map[string]any{}
	for k, v := range nodeDefaults {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}

	n := &model.Node{ID: id, Attrs: merged}
	if v, ok := merged["label"]; ok {
		n.Label = fmt.Sprint(v)
	}
	if v, ok := merged["shape"]; ok {
		n.Shape = fmt.Sprint(v)
	} else {
		n.Shape = "box"
	}
	if v, ok := merged["type"]; ok {
		n.Type = fmt.Sprint(v)
	}
	if v, ok := merged["prompt"]; ok {
		n.Prompt = fmt.Sprint(v)
	}
	g.AddNode(n)
}

func (p *parser) consumeOptionalSemicolon() {
	p.fill()
	if p.peek.kind == tokenSymbol && p.peek.lit == ";" {
		_, _ = p.next()
	}
}

// tryParseAttrBlock parses "[ key = value, ... ]", tolerating empty
// brackets and a trailing comma. It assumes the next token is "[" (after
// p.fill()); if not, it returns ok=false without consuming input.
func (p *parser) tryParseAttrBlock() (map[string]any, bool) {
	p.fill()
	if !(p.peek.kind == tokenSymbol && p.peek.lit == "[") {
		return nil, false
	}
	_, _ = p.next()

	attrs := map[string]any{}
	for {
		p.fill()
		if p.peek.kind == tokenSymbol && p.peek.lit == "]" {
			_, _ = p.next()
			return attrs, true
		}
		if p.peek.kind == tokenEOF {
			return attrs, true
		}
		if p.peek.kind == tokenSymbol && p.peek.lit == "," {
			_, _ = p.next()
			continue
		}
		keyTok, _ := p.next()
		if keyTok.kind != tokenIdent {
			continue
		}
		key := keyTok.lit
		p.fill()
		// Qualified keys like tool.foo.
		for p.peek.kind == tokenSymbol && p.peek.lit == "." {
			_, _ = p.next()
			part, _ := p.next()
			key += "." + part.lit
			p.fill()
		}
		if !(p.peek.kind == tokenSymbol && p.peek.lit == "=") {
			continue
		}
		_, _ = p.next()
		valTok, _ := p.next()
		attrs[key] = parseValue(valTok)

		p.fill()
		if p.peek.kind == tokenSymbol && p.peek.lit == "," {
			_, _ = p.next()
		}
	}
}

// parseValue converts a value token into a string, bool, int, float64, or
// leaves it as a string for bare identifiers (spec §4.1).
func parseValue(tok token) any {
	if tok.kind == tokenString {
		return tok.lit
	}
	s := tok.lit
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
