// Package llm talks to the language models that write Mermaid diagrams for
// the generation API.
package llm

import "context"

// Provider completes chat-style prompts.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries a conversation and sampling settings. Zero
// values select the provider defaults.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage counts the tokens billed for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

const defaultMaxTokens = 2048

// systemAndTurns splits leading system text from the conversation for APIs
// that take the system prompt separately.
func systemAndTurns(msgs []Message) (string, []Message) {
	var system string
	var turns []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
