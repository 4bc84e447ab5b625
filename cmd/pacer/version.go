package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/pacer"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pacer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pacer version %s\n", strings.TrimSpace(pacer.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
