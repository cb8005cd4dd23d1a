package mcp

import "github.com/mark3labs/mcp-go/mcp"

// renderDiagramTool defines the render_diagram MCP tool.
var renderDiagramTool = mcp.NewTool("render_diagram",
	mcp.WithDescription("Render Mermaid source to SVG. Any preamble before the diagram declaration is stripped first. On a syntax error the engine message and the offending source are returned."),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("Mermaid diagram source, optionally preceded by prose"),
	),
)

// sanitizeDiagramTool defines the sanitize_diagram MCP tool.
var sanitizeDiagramTool = mcp.NewTool("sanitize_diagram",
	mcp.WithDescription("Strip text preceding the first line that starts with a Mermaid diagram keyword. Text without any keyword is returned unchanged."),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("Raw text, typically a language model reply"),
	),
)

// listDiagramTypesTool defines the list_diagram_types MCP tool.
var listDiagramTypesTool = mcp.NewTool("list_diagram_types",
	mcp.WithDescription("List the diagram-type keywords recognized by the sanitizer, in priority order."),
)

// generateDiagramTool defines the generate_diagram MCP tool.
var generateDiagramTool = mcp.NewTool("generate_diagram",
	mcp.WithDescription("Generate Mermaid source from a natural-language description. Counts against the daily generation quota."),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("Description of the process, system or flow to draw"),
	),
	mcp.WithBoolean("render",
		mcp.Description("Also render the generated source and return the SVG (default false)"),
	),
)
