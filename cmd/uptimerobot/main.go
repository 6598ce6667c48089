// Package main is the entry point for the uptimerobot CLI.
//
// Usage:
//
//	uptimerobot run --base-dir /srv/uptimerobot   # Poll until interrupted
//	uptimerobot run --once                        # Poll every endpoint once
//	uptimerobot validate -c config.json           # Check config and endpoints
//	uptimerobot status                            # Show failing endpoints
//	uptimerobot version                           # Show version info
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

var rootCmd = &cobra.Command{
	Use:   "uptimerobot",
	Short: "A lightweight uptime monitor for HTTP endpoints",
	Long: `uptimerobot polls a set of HTTP(S) endpoints in fixed cycles and keeps,
per endpoint, an error marker while it is failing and a rotated log of
every failed check.

Layout of the base directory (all paths can be changed in the config):
  config.json          global settings (falls back to config.default.json)
  configs/*.json       one endpoint per file: {"url": "https://..."}
  errors/<name>        present while <name> is failing
  logs/<name>.log      failed checks, rotated into .gz archives

Every setting can be overridden with an UPTIMEROBOT_ environment variable,
e.g. UPTIMEROBOT_SLEEPTIME=30.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: <base-dir>/config.json)")
	rootCmd.PersistentFlags().String("base-dir", ".", "directory holding config.json and the default configs/errors/logs directories")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this uptimerobot binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "uptimerobot %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}
