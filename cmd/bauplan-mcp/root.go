package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "bauplan-mcp",
	Short: "MCP server for the Bauplan data lakehouse",
	Long: `bauplan-mcp exposes Bauplan data lakehouse operations as MCP tools.

Running without a subcommand starts the server on stdio (the mode MCP
clients spawn). Use 'bauplan-mcp serve --transport http' to run the
streamable HTTP listener instead.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to stdio serving when no subcommand is given
		return runServe(cmd, args)
	},
}

func init() {
	// Disable automatic completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Suppress errors from being printed twice
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	addServeFlags(rootCmd.Flags())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
