package main

import (
	"fmt"

	"github.com/aretw0/pacer/internal/cli"
	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/internal/presentation/graph"
	"github.com/aretw0/pacer/internal/presentation/tui"
	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored patterns as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		engine, cleanup, err := cli.CreateEngine(s, cli.EngineOptions{
			Logger:   logging.NewNop(),
			Actuator: memory.NewRecorder(),
		})
		if err != nil {
			return err
		}
		defer cleanup()
		defer engine.Close()

		set := engine.GetConfig()
		if name, _ := cmd.Flags().GetString("mermaid"); name != "" {
			p, ok := set.Get(name)
			if !ok {
				return fmt.Errorf("%w: %q", domain.ErrPatternNotFound, name)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(p, set.Sensitivity, nil))
			return err
		}

		md := tui.PatternTable(set, "")
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			_, err := fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}

		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("raw", false, "Print markdown without terminal styling")
	showCmd.Flags().String("mermaid", "", "Print the trajectory of one pattern as a Mermaid flowchart")
}
