// Package main is the entry point for the dashfeed CLI.
//
// dashfeed can be used as a library (SDK) or run as a standalone binary with
// YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	dashfeed serve -c config.yaml    # Refresh on a schedule and serve the state
//	dashfeed fetch -c config.yaml    # Fetch once and print the state
//	dashfeed ping -c config.yaml     # Check that the endpoint answers
//	dashfeed validate -c config.yaml # Validate configuration
//	dashfeed version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "dashfeed",
	Short: "Keep a transcript dashboard fed with data",
	Long: `dashfeed fetches dashboard data (conversations and students) from a
remote HTTP endpoint, falling back from a direct request to JSONP and then
to a CORS relay, and serves the latest state to the dashboard view.

Quick start:
  1. Create a config file (dashfeed.yaml)
  2. Check it: dashfeed ping -c dashfeed.yaml
  3. Run: dashfeed serve -c dashfeed.yaml
  4. Read http://localhost:8080/api/state

Example config:
  endpoint: https://script.google.com/macros/s/XXX/exec
  refresh_interval: 60s
  transports: [direct, jsonp, proxy]`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this dashfeed binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dashfeed %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-format", "json", "log output format: json, text or dev")
	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level: debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}
