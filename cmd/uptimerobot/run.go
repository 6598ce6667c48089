package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/uptimerobot"
	"github.com/jpalmerr/uptimerobot/internal/lock"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll all endpoints until interrupted",
	Long: `Poll every configured endpoint, then sleep, then repeat.

Only one poller may run per lock file. If the lock is held the command
prints when the other poller started and exits with status 1.

The poller runs until interrupted (Ctrl+C) or it receives SIGTERM; the lock
is removed on every exit path.

Example:
  uptimerobot run --base-dir /srv/uptimerobot
  uptimerobot run -c /etc/uptimerobot/config.json --log-level debug
  uptimerobot run --once   # single cycle, e.g. from cron`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().Bool("once", false, "run a single poll cycle and exit")
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	level, _ := cmd.Flags().GetString("log-level")
	once, _ := cmd.Flags().GetBool("once")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "source", cfg.Source, "configdir", cfg.ConfigDir)

	l, err := lock.Acquire(cfg.LockFile, time.Now())
	if err != nil {
		// held: "uptimerobot runs since <timestamp>"
		return err
	}
	defer func() {
		if relErr := l.Release(); relErr != nil {
			logger.Error("failed to release lock", "path", l.Path(), "error", relErr)
			if err == nil {
				err = relErr
			}
		}
	}()

	m, err := buildMonitor(cfg, uptimerobot.WithLogger(logger))
	if err != nil {
		return err
	}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		results, err := m.RunCycle(ctx)
		failing := 0
		for _, r := range results {
			if r.Failing {
				failing++
			}
		}
		logger.Info("cycle complete", "checked", len(results), "failing", failing)
		return err
	}

	return m.Run(ctx)
}
