package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/casestrainer/casestrainer/internal/admin/commands"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "casestrainer-admin",
		Short: "CaseStrainer administration CLI tool",
		Long: `casestrainer-admin is the administration tool for the CaseStrainer
citation-checking service.

It provides commands for inspecting the job store, the verification
cache, and system health.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringP("config", "c", "configs/default.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(commands.NewCacheCmd())
	rootCmd.AddCommand(commands.NewQueueCmd())
	rootCmd.AddCommand(commands.NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
