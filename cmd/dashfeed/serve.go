package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/dashfeed"
	"github.com/jpalmerr/dashfeed/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the refresh loop and the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh on a schedule and serve the dashboard state",
	Long: `Start dashfeed.

The server will:
  - Load configuration from the specified YAML file
  - Fetch the dashboard data immediately, then every refresh interval
  - Serve the latest state on the configured port (/api/state, /api/sse,
    /api/status, /metrics)

A failed refresh is logged and keeps the previous state. The server runs
until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  dashfeed serve -c config.yaml
  dashfeed serve --config /etc/dashfeed/config.yaml --log-format dev`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"endpoint", cfg.Endpoint,
		"transports", cfg.Transports,
	)

	opts := append(config.BuildOptions(cfg), dashfeed.WithLogger(logger))
	d, err := dashfeed.New(cfg.Endpoint, opts...)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// commandContext returns cmd's context, or a background context when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
