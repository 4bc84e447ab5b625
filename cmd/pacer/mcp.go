package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/pacer/internal/cli"
	"github.com/aretw0/pacer/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP Server so that agents can select and edit patterns as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		if sse, _ := cmd.Flags().GetBool("sse"); sse {
			transport = "sse"
		}
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
		logger := cli.CreateLogger(s.Log.Level)
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		engine, cleanup, err := cli.CreateEngine(s, cli.EngineOptions{Logger: logger})
		if err != nil {
			return err
		}
		defer cleanup()
		defer engine.Close()

		srv := mcp.NewServer(engine, logger)

		if s.Watch {
			go func() {
				if err := engine.AutoReload(ctx); err != nil {
					logger.Warn("Hot reload disabled", "err", err)
				}
			}()
		}

		switch transport {
		case "stdio":
			logger.Info("Starting Pacer MCP Server (Stdio)")
			return srv.ServeStdio(ctx)
		case "sse":
			logger.Info("Starting Pacer MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Bool("sse", false, "Shorthand for --transport sse")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
