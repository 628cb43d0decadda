package main

import (
	"fmt"
	"strings"

	"github.com/jpalmerr/dashfeed"
	"github.com/jpalmerr/dashfeed/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without fetching anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a dashfeed configuration file without contacting the endpoint.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  dashfeed validate -c config.yaml
  dashfeed validate --config /etc/dashfeed/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	timeout := "none"
	if cfg.Timeout != 0 {
		timeout = cfg.Timeout.Duration().String()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Endpoint:         %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Port:             %d\n", cfg.Port)
	fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.RefreshInterval.Duration())
	fmt.Fprintf(out, "  Timeout:          %s\n", timeout)
	fmt.Fprintf(out, "  Transports:       %s\n", strings.Join(cfg.Transports, " -> "))
	fmt.Fprintf(out, "  Headers:          %d\n", len(cfg.Headers))
	filters := dashfeed.Filters{StudentID: cfg.Filters.StudentID, Date: cfg.Filters.Date}
	if !filters.IsZero() {
		fmt.Fprintf(out, "  Filters:          studentID=%q date=%q\n", filters.StudentID, filters.Date)
	}

	return nil
}
