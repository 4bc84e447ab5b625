package main

import (
	"fmt"
	"os"

	"github.com/aretw0/pacer/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pacer",
	Short: "Pacer drives an actuator through named motion patterns",
	Long: `Pacer loads a document of named motion patterns and plays one of them at a time
through an actuator, exposing commands over HTTP, MCP and the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Settings file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("patterns", "", "Pattern document used by the file storage driver")
	rootCmd.PersistentFlags().String("storage", "", "Storage driver: file, memory, redis, sqlite, loam")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadSettings reads settings and applies the persistent flags on top.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path, nil)
	if err != nil {
		return config.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("patterns") {
		s.Patterns.Path, _ = flags.GetString("patterns")
	}
	if flags.Changed("storage") {
		s.Storage.Driver, _ = flags.GetString("storage")
	}
	if flags.Changed("log-level") {
		s.Log.Level, _ = flags.GetString("log-level")
	}

	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
