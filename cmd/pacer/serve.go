package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/internal/cli"
	"github.com/aretw0/pacer/internal/presentation/tui"
	pacerhttp "github.com/aretw0/pacer/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine and exposes its commands as a JSON API over HTTP.
Pattern-selected notifications are streamed on /events (Server-Sent Events).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			s.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("watch") {
			s.Watch, _ = cmd.Flags().GetBool("watch")
		}
		if cmd.Flags().Changed("metrics") {
			s.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
		}

		logger := cli.CreateLogger(s.Log.Level)
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		engine, cleanup, err := cli.CreateEngine(s, cli.EngineOptions{
			Logger:     logger,
			Registerer: reg,
			Hooks:      cli.DebugHooks(logger),
		})
		if err != nil {
			return err
		}
		defer cleanup()
		defer engine.Close()

		handlerOpts := []pacerhttp.Option{pacerhttp.WithLogger(logger)}
		if s.Metrics.Enabled {
			handlerOpts = append(handlerOpts, pacerhttp.WithMetrics(reg))
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(s.Server.Port),
			Handler:           pacerhttp.NewHandler(engine, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if s.Watch {
			go func() {
				if err := engine.AutoReload(ctx); err != nil {
					if errors.Is(err, pacer.ErrNotWatchable) {
						logger.Warn("Hot reload disabled", "driver", s.Storage.Driver, "err", err)
						return
					}
					logger.Error("Hot reload stopped", "err", err)
				}
			}()
		}

		serverErrors := make(chan error, 1)
		go func() {
			tui.MaybePrintBanner(os.Stdout)
			logger.Info("Starting Pacer Server", "addr", srv.Addr, "storage", s.Storage.Driver, "actuator", s.Actuator.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("Pacer Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Bool("watch", false, "Reload the configuration when the stored document changes")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
}
