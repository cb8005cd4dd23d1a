package render

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseFlowchart(t *testing.T) {
	src := `flowchart LR
    %% comment
    A[Start] --> B{Is it?}
    B -->|Yes| C(Done)
    B -- No --> D([Retry])
    D -.-> A
    C ==> E((End)) & F
    classDef hot fill:#f00
    subgraph Group [Side work]
        G --- H
    end`

	fc, err := ParseFlowchart(src)
	if err != nil {
		t.Fatalf("ParseFlowchart: %v", err)
	}
	if fc.Direction != "LR" {
		t.Errorf("direction = %q", fc.Direction)
	}
	if len(fc.Nodes) != 8 {
		t.Errorf("nodes = %d, want 8", len(fc.Nodes))
	}

	shapes := map[string]Shape{
		"A": ShapeBox, "B": ShapeDiamond, "C": ShapeRound,
		"D": ShapeStadium, "E": ShapeCircle,
	}
	for id, want := range shapes {
		n, ok := fc.Node(id)
		if !ok {
			t.Errorf("node %s missing", id)
			continue
		}
		if n.Shape != want {
			t.Errorf("node %s shape = %d, want %d", id, n.Shape, want)
		}
	}
	if n, _ := fc.Node("B"); n.Label != "Is it?" {
		t.Errorf("B label = %q", n.Label)
	}

	want := []FlowEdge{
		{From: "A", To: "B"},
		{From: "B", To: "C", Label: "Yes"},
		{From: "B", To: "D", Label: "No"},
		{From: "D", To: "A", Style: EdgeDotted},
		{From: "C", To: "E", Style: EdgeThick},
		{From: "C", To: "F", Style: EdgeThick},
		{From: "G", To: "H", Style: EdgeOpen},
	}
	if len(fc.Edges) != len(want) {
		t.Fatalf("edges = %+v", fc.Edges)
	}
	for i, e := range want {
		if fc.Edges[i] != e {
			t.Errorf("edge %d = %+v, want %+v", i, fc.Edges[i], e)
		}
	}

	if len(fc.Subgraphs) != 1 {
		t.Fatalf("subgraphs = %d", len(fc.Subgraphs))
	}
	sg := fc.Subgraphs[0]
	if sg.ID != "Group" || sg.Title != "Side work" || len(sg.Nodes) != 2 {
		t.Errorf("subgraph = %+v", sg)
	}
}

func TestParseFlowchart_HeaderVariants(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		dir     string
		edges   int
		wantErr bool
	}{
		{"default direction", "graph\nA-->B", "TB", 1, false},
		{"TD maps to TB", "graph TD\nA-->B", "TB", 1, false},
		{"statements on header line", "graph LR; A-->B; B-->C", "LR", 2, false},
		{"leading comment", "%% title\ngraph BT\nA", "BT", 0, false},
		{"chain", "graph TD\nA-->B-->C-->D", "TB", 3, false},
		{"arrow inside label", "graph TD\nA[a --> b]-->B", "TB", 1, false},
		{"semicolon inside label", "graph TD\nA[x; y]-->B", "TB", 1, false},
		{"bad direction", "graph XY\nA", "", 0, true},
		{"dangling link", "graph TD\nA-->", "", 0, true},
		{"unclosed subgraph", "graph TD\nsubgraph S\nA", "", 0, true},
		{"stray end", "graph TD\nend", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := ParseFlowchart(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				var se *SyntaxError
				if !errors.As(err, &se) {
					t.Errorf("error %T is not a *SyntaxError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fc.Direction != tt.dir {
				t.Errorf("direction = %q, want %q", fc.Direction, tt.dir)
			}
			if len(fc.Edges) != tt.edges {
				t.Errorf("edges = %d, want %d", len(fc.Edges), tt.edges)
			}
		})
	}
}

func TestParseFlowchart_NotAFlowchart(t *testing.T) {
	_, err := ParseFlowchart("sequenceDiagram\nA->>B: hi")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("sequence diagram: err = %v, want ErrUnsupported", err)
	}

	_, err = ParseFlowchart("Just text")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("plain text: err = %v", err)
	}
	if !strings.Contains(se.Message, "No diagram type detected") {
		t.Errorf("message = %q", se.Message)
	}

	if _, err := ParseFlowchart("  \n%% only a comment\n"); err == nil {
		t.Error("expected error for source without a header")
	}
}

func TestParseFlowchart_LineNumbers(t *testing.T) {
	_, err := ParseFlowchart("graph TD\nA-->B\nB-->")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}
	if se.Line != 3 {
		t.Errorf("line = %d, want 3", se.Line)
	}
	if !strings.HasPrefix(se.Error(), "Parse error on line 3:") {
		t.Errorf("Error() = %q", se.Error())
	}
}

func TestParseNodeRef(t *testing.T) {
	tests := []struct {
		in    string
		id    string
		label string
		shape Shape
		ok    bool
	}{
		{"A", "A", "", ShapeBox, true},
		{`A["quoted #quot;label#quot;"]`, "A", `quoted "label"`, ShapeBox, true},
		{"svc.api-1(Service)", "svc.api-1", "Service", ShapeRound, true},
		{"A:::hot", "A", "", ShapeBox, true},
		{"A[one<br/>two]", "A", "one\ntwo", ShapeBox, true},
		{"A>flag]", "A", "flag", ShapeBox, true},
		{"A[]", "A", "A", ShapeBox, true},
		{"[label]", "", "", ShapeBox, false},
		{"A[unclosed", "", "", ShapeBox, false},
	}
	for _, tt := range tests {
		id, label, shape, ok := parseNodeRef(tt.in)
		if ok != tt.ok || id != tt.id || label != tt.label || shape != tt.shape {
			t.Errorf("parseNodeRef(%q) = (%q, %q, %d, %v), want (%q, %q, %d, %v)",
				tt.in, id, label, shape, ok, tt.id, tt.label, tt.shape, tt.ok)
		}
	}
}

func TestToDOT(t *testing.T) {
	fc, err := ParseFlowchart("graph LR\nA[Start] -->|go| B{Check}\nB -.-> C")
	if err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(fc, "mermaid-1", ThemeByName("dark", DefaultFontFamily))

	for _, want := range []string{
		`digraph "mermaid-1" {`,
		"rankdir=LR;",
		`"A" [label="Start"];`,
		`"B" [label="Check", shape=diamond];`,
		`"A" -> "B" [label="go"];`,
		`"B" -> "C" [style=dashed];`,
		`fontname="Inter, system-ui, sans-serif"`,
		`fillcolor="#1f2020"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestThemeByName_Fallback(t *testing.T) {
	if got := ThemeByName("neon", "mono"); got.Name != "default" || got.FontFamily != "mono" {
		t.Errorf("ThemeByName = %+v", got)
	}
}

func TestNormalizeRoot(t *testing.T) {
	in := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`

	got := string(normalizeRoot([]byte(in), "mermaid-7"))
	if !strings.HasPrefix(got, `<svg id="mermaid-7"`) {
		t.Errorf("prolog not stripped: %q", got)
	}
	if !strings.Contains(got, `viewBox="0.00 0.00 62.00 116.00"`) {
		t.Errorf("viewBox lost: %q", got)
	}
	if strings.Contains(got, "62pt") {
		t.Errorf("fixed size kept: %q", got)
	}
	if !strings.HasSuffix(got, "<g/></svg>") {
		t.Errorf("body changed: %q", got)
	}
}

func TestGraphvizEngine_Render(t *testing.T) {
	eng := NewGraphvizEngine(ThemeByName("dark", DefaultFontFamily))

	svg, err := eng.Render(context.Background(), "mermaid-abc", "graph TD\nA[Hello] --> B[World]")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(svg, `<svg id="mermaid-abc"`) {
		t.Errorf("unexpected root: %.80q", svg)
	}
	if !strings.Contains(svg, "Hello") || !strings.Contains(svg, "World") {
		t.Error("labels missing from output")
	}

	if _, err := eng.Render(context.Background(), "mermaid-x", "pie\n\"a\": 1"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("pie: err = %v", err)
	}
}

func TestParseCLIError(t *testing.T) {
	stderr := `
Error: Parse error on line 2:
graph TD A-->
-------------^
Expecting 'AMP', got 'EOF'
    at Parser.parseError (file:///mermaid.js:1:2)
`
	err := parseCLIError(stderr)
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T", err)
	}
	if se.Line != 2 {
		t.Errorf("line = %d", se.Line)
	}
	if strings.Contains(se.Message, "Parser.parseError") {
		t.Errorf("stack frame kept: %q", se.Message)
	}
	if !strings.Contains(se.Message, "Expecting 'AMP'") {
		t.Errorf("message = %q", se.Message)
	}

	if got := parseCLIError("boom").Error(); got != "boom" {
		t.Errorf("plain stderr = %q", got)
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EngineConfig
		want    string
		wantErr bool
	}{
		{"default", EngineConfig{}, "*render.GraphvizEngine", false},
		{"graphviz", EngineConfig{Name: "graphviz", Theme: "dark"}, "*render.GraphvizEngine", false},
		{"mmdc", EngineConfig{Name: "mmdc", MMDCPath: "/usr/bin/mmdc"}, "*render.CLIEngine", false},
		{"unknown", EngineConfig{Name: "kroki"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewEngine(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEngine: %v", err)
			}
			switch e := eng.(type) {
			case *GraphvizEngine:
				if tt.want != "*render.GraphvizEngine" {
					t.Errorf("got graphviz engine")
				}
			case *CLIEngine:
				if tt.want != "*render.CLIEngine" {
					t.Errorf("got cli engine")
				}
				if e.config.Theme != "dark" || e.config.SecurityLevel != "loose" || e.config.Flowchart.UseMaxWidth {
					t.Errorf("config = %+v", e.config)
				}
			}
		})
	}
}
