package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd checks the config and endpoint files without polling.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config and endpoint files",
	Long: `Validate the global config and every endpoint file without polling.

This loads the config (with environment overrides), reads the endpoint
directory and checks that every endpoint has a valid URL and a unique
name. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  uptimerobot validate --base-dir /srv/uptimerobot
  uptimerobot validate -c /etc/uptimerobot/config.json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m, err := buildMonitor(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = "(defaults)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Source:          %s\n", source)
	fmt.Fprintf(out, "  Sleep time:      %s\n", cfg.SleepTimeDuration())
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeoutDuration())
	fmt.Fprintf(out, "  Log rotation:    every %s, keep %s\n", cfg.RotateInterval(), cfg.Retention())
	fmt.Fprintf(out, "  Endpoints:       %d\n", len(m.Endpoints()))
	for _, ep := range m.Endpoints() {
		fmt.Fprintf(out, "    %s\n", ep)
	}

	return nil
}
