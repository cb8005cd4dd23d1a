package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowminds/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "flowminds",
	Short: "Turn descriptions into Mermaid diagrams and render them",
	Long: `FlowMinds asks a language model for Mermaid diagrams, strips the chatter
around them, and renders the result to SVG. It serves an HTTP API with a
daily generation quota, a live pan-and-zoom viewer over websockets, and
MCP tools for AI agents.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
