package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/genstack0/genstack/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.json>",
	Short: "Validate a workflow graph file",
	Long: `Validate reads a workflow graph (the builder's JSON export, with
"nodes" and "edges" arrays) and reports every violated structural rule.
Exits non-zero when the workflow is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading workflow file: %w", err)
	}

	var g workflow.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("parsing workflow file: %w", err)
	}

	result := workflow.Validate(g)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}

	if !result.Valid {
		return fmt.Errorf("workflow has %d validation error(s)", len(result.Errors))
	}
	return nil
}
