package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Theme holds the colors and font the graphviz engine draws with.
type Theme struct {
	Name       string
	FontFamily string
	NodeFill   string
	NodeStroke string
	Text       string
	Edge       string
	Cluster    string
}

var themes = map[string]Theme{
	"dark": {
		Name:       "dark",
		NodeFill:   "#1f2020",
		NodeStroke: "#cccccc",
		Text:       "#e0e0e0",
		Edge:       "#d3d3d3",
		Cluster:    "#161616",
	},
	"default": {
		Name:       "default",
		NodeFill:   "#ECECFF",
		NodeStroke: "#9370DB",
		Text:       "#333333",
		Edge:       "#333333",
		Cluster:    "#ffffde",
	},
}

// ThemeByName returns the named theme with fontFamily applied. Unknown
// names fall back to "default".
func ThemeByName(name, fontFamily string) Theme {
	t, ok := themes[name]
	if !ok {
		t = themes["default"]
	}
	t.FontFamily = fontFamily
	return t
}

// GraphvizEngine lays out graph/flowchart diagrams in-process with
// Graphviz. Each call gets its own Graphviz instance, so overlapping calls
// never share state.
type GraphvizEngine struct {
	theme Theme
}

var _ Engine = (*GraphvizEngine)(nil)

// NewGraphvizEngine returns an engine drawing with theme.
func NewGraphvizEngine(theme Theme) *GraphvizEngine {
	return &GraphvizEngine{theme: theme}
}

// Render parses source as a flowchart and returns SVG whose root carries
// invocationID as its id.
func (e *GraphvizEngine) Render(ctx context.Context, invocationID, source string) (string, error) {
	fc, err := ParseFlowchart(source)
	if err != nil {
		return "", err
	}
	svg, err := renderSVG(ctx, ToDOT(fc, invocationID, e.theme))
	if err != nil {
		return "", err
	}
	return string(normalizeRoot(svg, invocationID)), nil
}

// ToDOT converts a flowchart to Graphviz DOT.
func ToDOT(fc *Flowchart, name string, theme Theme) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	fmt.Fprintf(&buf, "  rankdir=%s;\n", fc.Direction)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  ranksep=0.5;\n  nodesep=0.4;\n")
	fontAttr := ""
	if theme.FontFamily != "" {
		fontAttr = fmt.Sprintf(", fontname=%q", theme.FontFamily)
	}
	fmt.Fprintf(&buf, "  node [shape=box, style=\"filled\", fillcolor=%q, color=%q, fontcolor=%q, margin=\"0.2,0.1\"%s];\n",
		theme.NodeFill, theme.NodeStroke, theme.Text, fontAttr)
	fmt.Fprintf(&buf, "  edge [color=%q, fontcolor=%q%s];\n", theme.Edge, theme.Text, fontAttr)
	buf.WriteString("\n")

	for i, sg := range fc.Subgraphs {
		fmt.Fprintf(&buf, "  subgraph \"cluster_%d\" {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", sg.Title)
		fmt.Fprintf(&buf, "    style=\"filled\";\n    fillcolor=%q;\n    color=%q;\n    fontcolor=%q;\n",
			theme.Cluster, theme.NodeStroke, theme.Text)
		for _, id := range sg.Nodes {
			fmt.Fprintf(&buf, "    %q;\n", id)
		}
		buf.WriteString("  }\n")
	}

	for _, n := range fc.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range fc.Edges {
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *FlowNode) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Label)}
	switch n.Shape {
	case ShapeRound, ShapeStadium:
		attrs = append(attrs, `style="rounded,filled"`)
	case ShapeDiamond:
		attrs = append(attrs, "shape=diamond")
	case ShapeCircle:
		attrs = append(attrs, "shape=circle")
	}
	return attrs
}

func edgeAttrs(e FlowEdge) []string {
	var attrs []string
	if e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
	}
	switch e.Style {
	case EdgeOpen:
		attrs = append(attrs, "arrowhead=none")
	case EdgeDotted:
		attrs = append(attrs, "style=dashed")
	case EdgeThick:
		attrs = append(attrs, "penwidth=2.5")
	}
	return attrs
}

func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([-0-9.]+)\s+([-0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeRoot drops the XML prolog and doctype and rewrites the root tag
// so it carries the invocation id and a bare viewBox. Fixed pt sizes would
// fight the viewport's own sizing.
func normalizeRoot(svg []byte, id string) []byte {
	loc := svgTagRe.FindIndex(svg)
	if loc == nil {
		return svg
	}
	root := fmt.Sprintf(`<svg id=%q xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"`, id)
	if m := viewBoxRe.FindSubmatch(svg[loc[0]:loc[1]]); m != nil {
		root += fmt.Sprintf(` viewBox="%s %s %s %s"`, m[1], m[2], m[3], m[4])
	}
	root += ">"

	out := make([]byte, 0, len(svg))
	out = append(out, root...)
	return append(out, svg[loc[1]:]...)
}
