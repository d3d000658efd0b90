// Package main is the tide command-line interface: one-shot queries against
// a TypeScript analysis server for scripting and editor integration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tide",
		Short: "Query a TypeScript analysis server from the command line",
		Long: `Tide starts a tsserver-compatible analysis server for a project,
opens the named file, and runs a single query against it.

Server command, arguments, and timeouts are read from tide.toml in the
project root and TIDE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("project", "p", ".", "Project root directory")

	rootCmd.AddCommand(
		checkCmd(),
		quickinfoCmd(),
		definitionCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
