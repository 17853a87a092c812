package parsetree

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	DefaultIndentUnit = 2

	// GraphName is the name of the digraph emitted by [Converter.ToDOT].
	GraphName = "ParseTree"

	// EmptyLabel labels the single node produced for an empty dump.
	EmptyLabel = "No parse tree available\n(Syntax analysis failed or no valid code)"
)

// Options configures how indentation is measured.
type Options struct {
	// IndentUnit is the number of spaces per tree level. Zero means
	// DefaultIndentUnit.
	IndentUnit int
	// TabWidth is the number of spaces a leading tab counts for. Zero means
	// tabs end the indentation like any other character.
	TabWidth int
}

type Node struct {
	ID     int
	Label  string
	Depth  int
	Parent int // 0 for roots
}

type Edge struct {
	From int
	To   int
}

// Graph is the parsed tree. Nodes are in input order; node IDs start at 1.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Empty reports whether the dump held no nodes.
func (g *Graph) Empty() bool {
	return len(g.Nodes) == 0
}

// Roots returns the depth-0 nodes. The reference toolchain yields exactly one.
func (g *Graph) Roots() []Node {
	var roots []Node
	for _, n := range g.Nodes {
		if n.Parent == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

type Converter struct {
	opts Options
}

func NewConverter(opts Options) *Converter {
	if opts.IndentUnit <= 0 {
		opts.IndentUnit = DefaultIndentUnit
	}
	if opts.TabWidth < 0 {
		opts.TabWidth = 0
	}
	return &Converter{opts: opts}
}

// Convert is shorthand for converting with default options.
func Convert(text string) string {
	return NewConverter(Options{}).Convert(text)
}

// Convert parses text and returns its DOT description. It never fails: a dump
// without nodes becomes a single diagnostic node.
func (c *Converter) Convert(text string) string {
	return c.ToDOT(c.Parse(text))
}

// Parse builds the graph from the indented dump.
func (c *Converter) Parse(text string) *Graph {
	g := &Graph{}

	// stack[d] is the most recent node at depth d.
	var stack []int

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		label := strings.TrimSpace(line)
		if label == "" {
			continue
		}

		depth := c.depth(line)
		id := len(g.Nodes) + 1

		if len(stack) > depth {
			stack = stack[:depth]
		}

		parent := 0
		if depth > 0 && len(stack) > 0 {
			parent = stack[len(stack)-1]
			g.Edges = append(g.Edges, Edge{From: parent, To: id})
		}

		g.Nodes = append(g.Nodes, Node{ID: id, Label: label, Depth: depth, Parent: parent})

		// A node that skips levels sits directly above its attached parent.
		stack = append(stack, id)
	}

	return g
}

func (c *Converter) depth(line string) int {
	spaces := 0
	for _, r := range line {
		switch {
		case r == ' ':
			spaces++
		case r == '\t' && c.opts.TabWidth > 0:
			spaces += c.opts.TabWidth
		default:
			return spaces / c.opts.IndentUnit
		}
	}
	return spaces / c.opts.IndentUnit
}

// ToDOT writes g as a Graphviz digraph. An empty graph yields the diagnostic
// node so callers always get something renderable.
func (c *Converter) ToDOT(g *Graph) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", GraphName)
	buf.WriteString("node [shape=box, fontname=\"Arial\"];\n")
	buf.WriteString("edge [fontname=\"Arial\"];\n")

	if g == nil || g.Empty() {
		fmt.Fprintf(&buf, "  error [label=\"%s\"];\n", escapeLabel(EmptyLabel))
		buf.WriteString("}\n")
		return buf.String()
	}

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  node%d [label=\"%s\"];\n", n.ID, escapeLabel(n.Label))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  node%d -> node%d;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
)

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}
