// Package generate turns a natural-language prompt into Mermaid source with
// a language model and serves the FlowMinds HTTP API.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ziadkadry99/flowminds/internal/llm"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

var (
	// ErrEmptyPrompt is returned for blank prompts.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrPromptTooLong is returned for prompts over MaxPromptLength bytes.
	ErrPromptTooLong = fmt.Errorf("prompt exceeds %d characters", MaxPromptLength)
	// ErrNoDiagram means the model answered without any diagram source.
	ErrNoDiagram = errors.New("model returned no diagram")
)

// MaxPromptLength bounds the prompt forwarded to the model.
const MaxPromptLength = 4000

const systemPrompt = `You are FlowMinds, an assistant that turns descriptions of processes, systems and data flows into Mermaid diagrams.

Rules:
- Reply with exactly one fenced code block tagged mermaid and nothing else.
- Prefer "flowchart TD" unless another diagram type clearly fits better.
- Use short alphanumeric node ids and put human-readable text in labels, e.g. A[Receive order].
- Quote labels containing parentheses, brackets or punctuation, e.g. B["Validate (schema)"].
- Do not use HTML, click handlers, or styling directives.`

// Service generates diagrams.
type Service struct {
	provider  llm.Provider
	sanitizer *sanitize.Sanitizer
	md        goldmark.Markdown
	log       *log.Logger
	model     string
}

// Option configures a Service.
type Option func(*Service)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSanitizer sets the sanitizer applied to model output.
func WithSanitizer(san *sanitize.Sanitizer) Option {
	return func(s *Service) { s.sanitizer = san }
}

// NewService returns a Service backed by provider.
func NewService(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		sanitizer: sanitize.Default(),
		md:        goldmark.New(),
		log:       log.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CheckPrompt trims prompt and rejects it when blank or too long.
func CheckPrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	switch {
	case prompt == "":
		return "", ErrEmptyPrompt
	case len(prompt) > MaxPromptLength:
		return "", ErrPromptTooLong
	}
	return prompt, nil
}

// Generate asks the model for a diagram matching prompt and returns its
// sanitized Mermaid source.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	prompt, err := CheckPrompt(prompt)
	if err != nil {
		return "", err
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("generating diagram with %s: %w", s.provider.Name(), err)
	}
	s.log.Debug("completion received", "provider", s.provider.Name(), "model", resp.Model,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)

	source := s.sanitizer.Sanitize(s.Extract(resp.Content))
	if strings.TrimSpace(source) == "" {
		return "", ErrNoDiagram
	}
	return strings.TrimSpace(source), nil
}

// Extract returns the Mermaid source in a model reply. A block tagged
// mermaid wins over any other fenced block; replies without fences are
// returned whole.
func (s *Service) Extract(reply string) string {
	src := []byte(reply)
	doc := s.md.Parser().Parse(text.NewReader(src))

	var tagged, first *string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		body := blockText(block, src)
		if string(block.Language(src)) == "mermaid" {
			tagged = &body
			return ast.WalkStop, nil
		}
		if first == nil {
			first = &body
		}
		return ast.WalkSkipChildren, nil
	})

	switch {
	case tagged != nil:
		return *tagged
	case first != nil:
		return *first
	default:
		return reply
	}
}

func blockText(block *ast.FencedCodeBlock, src []byte) string {
	var b strings.Builder
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
