package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/uptimerobot"
	"github.com/jpalmerr/uptimerobot/config"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// loadConfig reads the global config named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	baseDir, _ := cmd.Flags().GetString("base-dir")

	cfg, err := config.Load(configFile, baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildMonitor loads the endpoint directory and assembles a monitor from cfg.
func buildMonitor(cfg *config.Config, extra ...uptimerobot.Option) (*uptimerobot.Monitor, error) {
	endpoints, err := config.LoadEndpoints(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoints: %w", err)
	}

	opts := append(cfg.Options(), uptimerobot.WithEndpoints(endpoints...))
	opts = append(opts, extra...)

	m, err := uptimerobot.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}
	return m, nil
}
