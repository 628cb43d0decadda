package main

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/dashfeed"
	"github.com/jpalmerr/dashfeed/config"
	"github.com/spf13/cobra"
)

// errPingFailed is returned when the endpoint cannot be reached.
var errPingFailed = errors.New("connection test failed")

// pingCmd checks that the endpoint answers through at least one transport.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection to the endpoint",
	Long: `Perform a single unfiltered fetch and report whether it succeeded.

Exit codes:
  0 - The endpoint answered with dashboard data
  1 - Every transport failed

Example:
  dashfeed ping -c config.yaml --log-format dev`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = pingCmd.MarkFlagRequired("config")
}

func runPing(cmd *cobra.Command, args []string) error {
	logger, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := append(config.BuildOptions(cfg), dashfeed.WithLogger(logger))
	f, err := dashfeed.NewFetcher(cfg.Endpoint, opts...)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer f.Close()

	if !f.TestConnection(commandContext(cmd)) {
		return errPingFailed
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OK %s\n", cfg.Endpoint)
	return nil
}
