// Package cmd implements the genstack command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "genstack",
	Short: "genstack - RAG workflow engine",
	Long: `genstack runs user-authored RAG workflows: it validates workflow
graphs, retrieves knowledge-base and web-search context, and streams
generated answers over an HTTP API.

Run 'genstack serve' to start the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
