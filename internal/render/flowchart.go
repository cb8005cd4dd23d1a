package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

// Shape is the outline drawn for a flowchart node.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeRound
	ShapeStadium
	ShapeDiamond
	ShapeCircle
)

// EdgeStyle is the stroke of a flowchart link.
type EdgeStyle int

const (
	EdgeSolid EdgeStyle = iota
	EdgeOpen
	EdgeDotted
	EdgeThick
)

// FlowNode is a flowchart vertex.
type FlowNode struct {
	ID    string
	Label string
	Shape Shape
}

// FlowEdge is a link between two nodes.
type FlowEdge struct {
	From, To string
	Label    string
	Style    EdgeStyle
}

// Subgraph groups nodes under a title.
type Subgraph struct {
	ID    string
	Title string
	Nodes []string
}

// Flowchart is the subset of a Mermaid graph/flowchart diagram the graphviz
// engine can lay out.
type Flowchart struct {
	Direction string
	Nodes     []*FlowNode
	Edges     []FlowEdge
	Subgraphs []*Subgraph

	index map[string]*FlowNode
}

// Node returns the node with id, if declared.
func (f *Flowchart) Node(id string) (*FlowNode, bool) {
	n, ok := f.index[id]
	return n, ok
}

var knownTypes = sanitize.Default()

var directions = map[string]string{
	"TB": "TB", "TD": "TB", "BT": "BT", "LR": "LR", "RL": "RL",
}

// linkPattern matches one link between node references: `-->`, `---`,
// `-.->`, `==>` with an optional `|label|`, or the `-- label -->` form.
var linkPattern = regexp.MustCompile(`\s*(?:--\s+([^|>]+?)\s+-->|(-\.->|-\.-|==>|===|-->|---)(?:\|([^|]*)\|)?)\s*`)

// ignoredStatements carry styling only; they have no graphviz equivalent.
var ignoredStatements = []string{"classDef ", "class ", "style ", "click ", "linkStyle ", "direction "}

// ParseFlowchart parses Mermaid graph/flowchart source. Other diagram types
// yield an error wrapping ErrUnsupported; text without a diagram header
// yields a *SyntaxError.
func ParseFlowchart(source string) (*Flowchart, error) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	fc := &Flowchart{index: map[string]*FlowNode{}}

	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%%") {
			continue
		}
		if err := fc.parseHeader(trimmed, source); err != nil {
			return nil, err
		}
		// `graph TD; A-->B` keeps statements on the header line.
		if _, rest, ok := strings.Cut(trimmed, ";"); ok {
			lines[i] = rest
			start = i
		} else {
			start = i + 1
		}
		break
	}
	if start < 0 {
		return nil, noDiagramError(source)
	}

	var stack []*Subgraph
	for i := start; i < len(lines); i++ {
		for _, stmt := range splitOutside(lines[i], ';') {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" || strings.HasPrefix(stmt, "%%") || ignored(stmt) {
				continue
			}
			var err error
			stack, err = fc.parseStatement(stmt, stack)
			if err != nil {
				return nil, &SyntaxError{Line: i + 1, Message: err.Error()}
			}
		}
	}
	if len(stack) > 0 {
		return nil, &SyntaxError{Message: fmt.Sprintf("subgraph %q is missing its end", stack[len(stack)-1].ID)}
	}
	return fc, nil
}

func noDiagramError(source string) error {
	return &SyntaxError{Message: "No diagram type detected matching given configuration for text: " + source}
}

func (fc *Flowchart) parseHeader(line, source string) error {
	head := strings.TrimSuffix(strings.SplitN(line, ";", 2)[0], ";")
	fields := strings.Fields(head)
	keyword := fields[0]
	if keyword != "graph" && keyword != "flowchart" {
		if m, ok := knownTypes.Match(line); ok && m.Offset == 0 {
			return fmt.Errorf("%w: %s (the graphviz engine draws graph and flowchart diagrams only)", ErrUnsupported, m.Token)
		}
		return noDiagramError(source)
	}
	fc.Direction = "TB"
	if len(fields) > 1 {
		dir, ok := directions[strings.ToUpper(fields[1])]
		if !ok {
			return &SyntaxError{Line: 1, Message: fmt.Sprintf("unknown direction %q", fields[1])}
		}
		fc.Direction = dir
	}
	return nil
}

func ignored(stmt string) bool {
	for _, p := range ignoredStatements {
		if strings.HasPrefix(stmt, p) {
			return true
		}
	}
	return false
}

func (fc *Flowchart) parseStatement(stmt string, stack []*Subgraph) ([]*Subgraph, error) {
	switch {
	case stmt == "end":
		if len(stack) == 0 {
			return nil, fmt.Errorf("unexpected end")
		}
		return stack[:len(stack)-1], nil
	case strings.HasPrefix(stmt, "subgraph ") || stmt == "subgraph":
		sg := parseSubgraphHeader(strings.TrimSpace(strings.TrimPrefix(stmt, "subgraph")), len(fc.Subgraphs))
		fc.Subgraphs = append(fc.Subgraphs, sg)
		return append(stack, sg), nil
	}

	var current *Subgraph
	if len(stack) > 0 {
		current = stack[len(stack)-1]
	}

	links := linkPattern.FindAllStringSubmatchIndex(mask(stmt), -1)
	if len(links) == 0 {
		_, err := fc.declareGroup(stmt, current)
		return stack, err
	}

	prev, err := fc.declareGroup(stmt[:links[0][0]], current)
	if err != nil {
		return stack, err
	}
	for i, loc := range links {
		end := len(stmt)
		if i+1 < len(links) {
			end = links[i+1][0]
		}
		next, err := fc.declareGroup(stmt[loc[1]:end], current)
		if err != nil {
			return stack, err
		}
		label, style := linkAttrs(stmt, loc)
		for _, from := range prev {
			for _, to := range next {
				fc.Edges = append(fc.Edges, FlowEdge{From: from, To: to, Label: label, Style: style})
			}
		}
		prev = next
	}
	return stack, nil
}

func linkAttrs(stmt string, loc []int) (string, EdgeStyle) {
	group := func(n int) string {
		if loc[2*n] < 0 {
			return ""
		}
		return stmt[loc[2*n]:loc[2*n+1]]
	}
	if text := group(1); text != "" {
		return unescapeLabel(strings.TrimSpace(text)), EdgeSolid
	}
	label := unescapeLabel(strings.TrimSpace(group(3)))
	switch group(2) {
	case "---":
		return label, EdgeOpen
	case "-.->", "-.-":
		return label, EdgeDotted
	case "==>", "===":
		return label, EdgeThick
	default:
		return label, EdgeSolid
	}
}

func parseSubgraphHeader(rest string, n int) *Subgraph {
	sg := &Subgraph{ID: fmt.Sprintf("subgraph_%d", n)}
	if rest == "" {
		return sg
	}
	if id, label, _, ok := parseNodeRef(rest); ok {
		sg.ID = id
		sg.Title = id
		if label != "" {
			sg.Title = label
		}
		return sg
	}
	sg.Title = unescapeLabel(strings.Trim(rest, `"`))
	return sg
}

// declareGroup declares every `&`-separated node reference in s and returns
// their ids.
func (fc *Flowchart) declareGroup(s string, sg *Subgraph) ([]string, error) {
	var ids []string
	for _, ref := range splitOutside(s, '&') {
		ref = strings.TrimSpace(ref)
		id, label, shape, ok := parseNodeRef(ref)
		if !ok {
			return nil, fmt.Errorf("unexpected %q", ref)
		}
		fc.declare(id, label, shape, sg)
		ids = append(ids, id)
	}
	return ids, nil
}

func (fc *Flowchart) declare(id, label string, shape Shape, sg *Subgraph) {
	n, ok := fc.index[id]
	if !ok {
		n = &FlowNode{ID: id, Label: id}
		fc.index[id] = n
		fc.Nodes = append(fc.Nodes, n)
		if sg != nil {
			sg.Nodes = append(sg.Nodes, id)
		}
	}
	if label != "" {
		n.Label = label
		n.Shape = shape
	}
}

var shapeDelims = []struct {
	open, close string
	shape       Shape
}{
	{"((", "))", ShapeCircle},
	{"([", "])", ShapeStadium},
	{"[[", "]]", ShapeBox},
	{"[", "]", ShapeBox},
	{"(", ")", ShapeRound},
	{"{", "}", ShapeDiamond},
	{">", "]", ShapeBox},
}

// parseNodeRef splits `ID`, `ID[label]`, `ID(label)`, `ID{label}` and the
// other bracket forms, dropping any `:::class` suffix.
func parseNodeRef(s string) (id, label string, shape Shape, ok bool) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":::"); i >= 0 && !strings.ContainsAny(s[i:], "])}") {
		s = strings.TrimSpace(s[:i])
	}
	end := strings.IndexFunc(s, func(r rune) bool { return !isIDRune(r) })
	if end == 0 || s == "" {
		return "", "", ShapeBox, false
	}
	if end < 0 {
		return s, "", ShapeBox, true
	}
	id, rest := s[:end], strings.TrimSpace(s[end:])
	for _, d := range shapeDelims {
		if strings.HasPrefix(rest, d.open) && strings.HasSuffix(rest, d.close) && len(rest) >= len(d.open)+len(d.close) {
			inner := strings.TrimSpace(rest[len(d.open) : len(rest)-len(d.close)])
			if len(inner) >= 2 && strings.HasPrefix(inner, `"`) && strings.HasSuffix(inner, `"`) {
				inner = inner[1 : len(inner)-1]
			}
			if inner == "" {
				inner = id
			}
			return id, unescapeLabel(inner), d.shape, true
		}
	}
	return "", "", ShapeBox, false
}

func isIDRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// labelEntities reverses the entity escaping Mermaid authors use inside
// labels.
var labelEntities = strings.NewReplacer(
	"#quot;", `"`,
	"#lpar;", "(",
	"#rpar;", ")",
	"#lsqb;", "[",
	"#rsqb;", "]",
	"#lbrace;", "{",
	"#rbrace;", "}",
	"#lt;", "<",
	"#gt;", ">",
	"<br/>", "\n",
	"<br />", "\n",
	"<br>", "\n",
)

func unescapeLabel(s string) string {
	return labelEntities.Replace(s)
}

// mask blanks out bracketed and quoted label text so link and separator
// matching only sees the statement's structure. Byte offsets are kept.
func mask(s string) string {
	b := []byte(s)
	depth := 0
	quoted := false
	for i, c := range b {
		switch {
		case c == '"' && depth == 0:
			quoted = !quoted
			continue
		case quoted:
			b[i] = 'x'
			continue
		case c == '[' || c == '(' || c == '{':
			depth++
			if depth > 1 {
				b[i] = 'x'
			}
			continue
		case (c == ']' || c == ')' || c == '}') && depth > 0:
			depth--
			if depth > 0 {
				b[i] = 'x'
			}
			continue
		}
		if depth > 0 {
			b[i] = 'x'
		}
	}
	return string(b)
}

// splitOutside splits s on sep where sep is not inside a label.
func splitOutside(s string, sep byte) []string {
	m := mask(s)
	var parts []string
	last := 0
	for i := 0; i < len(m); i++ {
		if m[i] == sep {
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}
