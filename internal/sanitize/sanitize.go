// Package sanitize strips preamble text from Mermaid source so the rendering
// engine always receives input that starts at a diagram-type declaration.
//
// LLM output frequently carries a sentence or two before the actual diagram
// ("Here is your flowchart:"). The Sanitizer finds the leftmost line that
// begins with a recognized diagram keyword and drops everything before it.
// Text without any recognized keyword is passed through untouched so the
// engine can report the syntax error itself.
package sanitize

import (
	"regexp"
	"strings"
)

// DefaultTypes is the ordered list of diagram-type keywords recognized out of
// the box. Order only matters when two keywords match at the same offset.
var DefaultTypes = []string{
	"graph",
	"flowchart",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram",
	"erDiagram",
	"journey",
	"gbu",
	"gitGraph",
	"pie",
	"mindmap",
	"timeline",
	"zenuml",
	"sankey",
	"xychart",
	"block",
	"packet",
	"kanban",
	"architecture",
}

// Match describes where a diagram-type keyword was found.
type Match struct {
	// Offset is the byte offset of the start of the matching line.
	Offset int
	// Token is the keyword that matched.
	Token string
}

// Sanitizer holds the compiled keyword patterns. It is immutable after New
// and safe for concurrent use.
type Sanitizer struct {
	tokens   []string
	patterns []*regexp.Regexp
}

// New compiles a Sanitizer for the given keywords. Empty keywords are
// ignored. A nil or empty list yields a Sanitizer that never matches.
func New(tokens []string) *Sanitizer {
	s := &Sanitizer{}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		s.tokens = append(s.tokens, tok)
		// Indentation on the keyword's own line is allowed; the match still
		// starts at the beginning of that line.
		s.patterns = append(s.patterns, regexp.MustCompile(`(?m)^[ \t]*`+regexp.QuoteMeta(tok)))
	}
	return s
}

// Default returns a Sanitizer for DefaultTypes.
func Default() *Sanitizer {
	return New(DefaultTypes)
}

// Tokens returns a copy of the configured keywords in priority order.
func (s *Sanitizer) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Match returns the leftmost keyword match in raw. When several keywords
// match at the same offset the one listed first wins.
func (s *Sanitizer) Match(raw string) (Match, bool) {
	best := Match{Offset: -1}
	for i, re := range s.patterns {
		loc := re.FindStringIndex(raw)
		if loc == nil {
			continue
		}
		if best.Offset < 0 || loc[0] < best.Offset {
			best = Match{Offset: loc[0], Token: s.tokens[i]}
		}
	}
	if best.Offset < 0 {
		return Match{}, false
	}
	return best, true
}

// Sanitize returns raw starting at the leftmost diagram-type line. If no
// keyword matches, or the match is already at the start, raw is returned
// unchanged.
func (s *Sanitizer) Sanitize(raw string) string {
	m, ok := s.Match(raw)
	if !ok || m.Offset == 0 {
		return raw
	}
	return raw[m.Offset:]
}

// Source pairs raw diagram text with its sanitized form.
type Source struct {
	Raw       string
	Sanitized string
}

// Capture sanitizes raw once and returns both forms.
func (s *Sanitizer) Capture(raw string) Source {
	return Source{Raw: raw, Sanitized: s.Sanitize(raw)}
}

// Trimmed reports whether sanitization removed a preamble.
func (src Source) Trimmed() bool {
	return len(src.Sanitized) != len(src.Raw)
}
