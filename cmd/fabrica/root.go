package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fabrica",
	Short: "LLM-driven project generator",
	Long: `Fabrica turns a plain-text description into a working project.

It asks an LLM to decompose the description into ordered tasks, runs
code generation task by task respecting dependencies, and writes the
resulting files to disk.

Core capabilities:
- Decomposes a description into a dependency-ordered task list
- Generates code per task with accumulated project context
- Retries transient provider failures with exponential backoff
- Writes finished projects under an output directory with an index`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
