package main

import (
	"fmt"
	"os"

	"github.com/aretw0/pacer/pkg/schema"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <in>",
	Short: "Rewrite a pattern document in the current format",
	Long: `Reads a document of any supported version (legacy absolute {x, y, delay} steps included)
and writes it back as a version 2 document of relative steps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		formatName, _ := cmd.Flags().GetString("format")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		format := schema.ParseFormat(formatName)
		if formatName == "" && out != "" {
			format = schema.FormatFromPath(out)
		}

		migrated, err := schema.MigrateTo(data, format)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		if out == "" {
			_, err = cmd.OutOrStdout().Write(migrated)
			return err
		}
		if err := os.WriteFile(out, migrated, 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	migrateCmd.Flags().String("format", "", "Output format: json or yaml (default from --out extension, else json)")
}
