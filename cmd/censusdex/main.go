// Package main provides the censusdex entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aaronbrezel/mcp-census/internal/config"
	"github.com/aaronbrezel/mcp-census/internal/version"
)

// env selects config/<env>.yaml. Defaults to $ENV, then "local".
var env string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra does not print it
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "censusdex",
	Short: "Census Bureau data tools for agents",
	Long: `censusdex exposes the U.S. Census Bureau Data API as agent tools.

  - Semantic search over the dataset catalog (persistent vector index)
  - Per-request semantic filtering of dataset variables
  - Geography, FIPS lookup and data retrieval

Tools are served over MCP (stdio or streamable HTTP) and REST.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "config environment (local, dev, docker, prod); defaults to $ENV")
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd, mcpCmd, rebuildCmd, versionCmd)
}

// resolveEnv returns the --env flag or the ENV variable.
func resolveEnv() string {
	if env != "" {
		return env
	}
	return config.GetEnv()
}
