package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/pacer/internal/cli"
	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/pkg/adapters/device"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <pattern>",
	Short: "Run one pattern once and exit",
	Long: `Selects the named pattern and logs every step as it is applied.
Exits when the pattern completes or on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		logger := cli.CreateLogger(s.Log.Level)
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		engine, cleanup, err := cli.CreateEngine(s, cli.EngineOptions{
			Logger:   logger,
			Actuator: device.NewLogActuator(logging.New(slog.LevelInfo), slog.LevelInfo),
			Hooks:    cli.DebugHooks(logger),
		})
		if err != nil {
			return err
		}
		defer cleanup()
		defer engine.Close()

		out := cmd.OutOrStdout()
		if err := engine.SetActivePattern(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSystemMessage(out, "Playing '%s'", args[0])

		state, err := engine.Wait(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			if clearErr := engine.ClearActivePattern(context.Background()); clearErr != nil {
				return clearErr
			}
			cli.PrintSystemMessage(out, "Interrupted '%s' (%v)", args[0], ctx.Signal())
			return nil
		case err != nil:
			return err
		case state == domain.RunCompleted:
			cli.PrintSystemMessage(out, "Finished '%s'", args[0])
		default:
			cli.PrintSystemMessage(out, "Stopped '%s': %s", args[0], state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
