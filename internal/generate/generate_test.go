package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ziadkadry99/flowminds/internal/llm"
	"github.com/ziadkadry99/flowminds/internal/logging"
)

// mockProvider returns a canned reply and records requests.
type mockProvider struct {
	mu    sync.Mutex
	calls []llm.CompletionRequest
	reply string
	err   error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.reply, Model: "mock-1"}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "tagged fence",
			reply: "Here is your diagram:\n\n```mermaid\nflowchart TD\n  A --> B\n```\n\nLet me know!",
			want:  "flowchart TD\n  A --> B",
		},
		{
			name:  "tagged fence wins over earlier untagged one",
			reply: "```\nnot it\n```\n\n```mermaid\ngraph LR\nX-->Y\n```",
			want:  "graph LR\nX-->Y",
		},
		{
			name:  "untagged fence",
			reply: "```\nsequenceDiagram\nA->>B: hi\n```",
			want:  "sequenceDiagram\nA->>B: hi",
		},
		{
			name:  "bare reply with preamble",
			reply: "Sure thing.\ngraph TD\nA-->B",
			want:  "graph TD\nA-->B",
		},
		{
			name:  "unterminated fence",
			reply: "```mermaid\npie\n\"a\": 1",
			want:  "pie\n\"a\": 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{reply: tt.reply}
			svc := NewService(p, WithLogger(logging.Discard()), WithModel("m-1"))

			got, err := svc.Generate(context.Background(), "draw a login flow")
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerate_Request(t *testing.T) {
	p := &mockProvider{reply: "graph TD\nA"}
	svc := NewService(p, WithLogger(logging.Discard()), WithModel("m-1"))

	if _, err := svc.Generate(context.Background(), "  checkout flow  "); err != nil {
		t.Fatal(err)
	}
	req := p.calls[0]
	if req.Model != "m-1" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if req.Messages[1].Content != "checkout flow" {
		t.Errorf("prompt = %q", req.Messages[1].Content)
	}
	if !strings.Contains(req.Messages[0].Content, "mermaid") {
		t.Error("system prompt should ask for a mermaid block")
	}
}

func TestGenerate_Errors(t *testing.T) {
	svc := NewService(&mockProvider{reply: "graph TD"}, WithLogger(logging.Discard()))
	if _, err := svc.Generate(context.Background(), "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("blank prompt: err = %v", err)
	}
	if _, err := svc.Generate(context.Background(), strings.Repeat("x", MaxPromptLength+1)); !errors.Is(err, ErrPromptTooLong) {
		t.Error("expected error for oversized prompt")
	}

	boom := errors.New("upstream down")
	svc = NewService(&mockProvider{err: boom}, WithLogger(logging.Discard()))
	if _, err := svc.Generate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("provider error not wrapped: %v", err)
	}

	svc = NewService(&mockProvider{reply: "```mermaid\n```"}, WithLogger(logging.Discard()))
	if _, err := svc.Generate(context.Background(), "x"); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("empty block: err = %v", err)
	}
}
