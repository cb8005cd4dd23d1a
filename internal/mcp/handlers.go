package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/flowminds/internal/render"
)

// handleRenderDiagram sanitizes and renders the given source.
func (s *Server) handleRenderDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil || strings.TrimSpace(source) == "" {
		return mcp.NewToolResultError("missing required parameter: source"), nil
	}
	return s.renderResult(ctx, s.sanitizer.Sanitize(source)), nil
}

func (s *Server) renderResult(ctx context.Context, source string) *mcp.CallToolResult {
	switch res := render.Once(ctx, s.engine, "mermaid-"+uuid.NewString(), source).(type) {
	case render.Rendered:
		return mcp.NewToolResultText(res.Markup)
	case render.Failed:
		return mcp.NewToolResultError(formatFailure(res))
	default:
		return mcp.NewToolResultError(render.DefaultFailureMessage)
	}
}

// handleSanitizeDiagram returns the source with any preamble removed.
func (s *Server) handleSanitizeDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: source"), nil
	}
	return mcp.NewToolResultText(s.sanitizer.Sanitize(source)), nil
}

// handleListDiagramTypes returns the recognized keywords, one per line.
func (s *Server) handleListDiagramTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.sanitizer.Tokens(), "\n")), nil
}

// handleGenerateDiagram asks the generator for a diagram and optionally
// renders it.
func (s *Server) handleGenerateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil || strings.TrimSpace(prompt) == "" {
		return mcp.NewToolResultError("missing required parameter: prompt"), nil
	}

	source, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram generation failed: %v", err)), nil
	}

	if !request.GetBool("render", false) {
		return mcp.NewToolResultText(source), nil
	}
	return s.renderResult(ctx, source), nil
}

// formatFailure lays out an engine rejection the way the viewer's debug
// panel does: message first, then the source that caused it.
func formatFailure(f render.Failed) string {
	var sb strings.Builder
	sb.WriteString(f.Message)
	sb.WriteString("\n\nSource:\n")
	sb.WriteString(f.OffendingSource)
	return sb.String()
}
