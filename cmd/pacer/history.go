package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/pacer/internal/cli"
	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/adapters/sqlite"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved revisions of the sqlite store",
	Long: `Lists every revision kept by the sqlite storage driver, newest first.
With --restore, the given revision is validated and saved again as the newest one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if s.Storage.Driver != "sqlite" {
			return errors.New("history requires the sqlite storage driver")
		}

		ctx := context.Background()
		store, err := sqlite.Open(s.Storage.SQLite.Path, sqlite.WithName(s.Storage.SQLite.Name))
		if err != nil {
			return err
		}
		defer store.Close()

		if id, _ := cmd.Flags().GetInt64("restore"); id > 0 {
			data, err := store.LoadRevision(ctx, id)
			if err != nil {
				return err
			}
			store.Close()

			engine, cleanup, err := cli.CreateEngine(s, cli.EngineOptions{
				Logger:   logging.NewNop(),
				Actuator: memory.NewRecorder(),
			})
			if err != nil {
				return err
			}
			defer cleanup()
			defer engine.Close()

			if err := engine.SaveConfigBytes(ctx, data); err != nil {
				return err
			}
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Restored revision %d", id)
			return nil
		}

		revs, err := store.Revisions(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSAVED\tSIZE\tCHECKSUM")
		for _, r := range revs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%.12s\n", r.ID, r.SavedAt.Format(time.RFC3339), r.Size, r.Checksum)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int64("restore", 0, "Revision ID to restore")
}
