package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Generator produces Mermaid source from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Server wraps an MCP server that exposes diagram tools.
type Server struct {
	engine    render.Engine
	sanitizer *sanitize.Sanitizer
	generator Generator
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. generate_diagram is only offered when
// generator is non-nil.
func NewServer(engine render.Engine, sanitizer *sanitize.Sanitizer, generator Generator) *Server {
	if sanitizer == nil {
		sanitizer = sanitize.Default()
	}
	s := &Server{
		engine:    engine,
		sanitizer: sanitizer,
		generator: generator,
	}

	s.mcp = server.NewMCPServer(
		"flowminds",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(renderDiagramTool, s.handleRenderDiagram)
	s.mcp.AddTool(sanitizeDiagramTool, s.handleSanitizeDiagram)
	s.mcp.AddTool(listDiagramTypesTool, s.handleListDiagramTypes)
	if s.generator != nil {
		s.mcp.AddTool(generateDiagramTool, s.handleGenerateDiagram)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
