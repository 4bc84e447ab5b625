package main

import (
	"fmt"
	"os"

	"github.com/aretw0/pacer/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a pattern document",
	Long:  `Decodes a JSON or YAML pattern document and reports the first problem found.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		set, err := schema.Decode(data)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Document is valid: %d pattern(s)\n", len(set.Patterns))
		for _, p := range set.Patterns {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d step(s), %s\n", p.Name, len(p.Steps), p.TotalDuration())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
