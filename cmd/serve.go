package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowminds/internal/generate"
	mcpserver "github.com/ziadkadry99/flowminds/internal/mcp"
	"github.com/ziadkadry99/flowminds/internal/nexus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing diagram
rendering and sanitizing tools. With --local the generate_diagram tool calls
the configured LLM provider directly; otherwise it goes through the FlowMinds
API at api_url and counts against its daily quota.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("local", false, "generate with the configured provider instead of the API")
	serveCmd.Flags().Bool("no-generate", false, "do not offer the generate_diagram tool")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	sanitizer := newSanitizer(cfg)

	local, _ := cmd.Flags().GetBool("local")
	noGenerate, _ := cmd.Flags().GetBool("no-generate")

	var generator mcpserver.Generator
	switch {
	case noGenerate:
	case local:
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		generator = generate.NewService(provider,
			generate.WithModel(cfg.Model),
			generate.WithSanitizer(sanitizer),
			generate.WithLogger(logger),
		)
	default:
		generator = nexus.New(cfg.APIURL)
	}

	mcpserver.Version = Version

	logger.Info(fmt.Sprintf("flowminds MCP server %s started on stdio", Version),
		"engine", cfg.Render.Engine, "generate", generator != nil)

	return mcpserver.NewServer(engine, sanitizer, generator).Serve()
}
