package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpalmerr/uptimerobot"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockHealthServer(":9999")
	time.Sleep(100 * time.Millisecond)

	var endpoints []uptimerobot.Endpoint
	for _, svc := range []string{"users", "orders", "billing", "slow"} {
		ep, err := uptimerobot.NewEndpoint("http://localhost:9999/health/"+svc,
			uptimerobot.WithExtra(map[string]any{"team": "demo"}),
		)
		if err != nil {
			slog.Error("failed to create endpoint", "error", err)
			os.Exit(1)
		}
		endpoints = append(endpoints, ep)
	}

	dir, err := os.MkdirTemp("", "uptimerobot-demo-")
	if err != nil {
		slog.Error("failed to create demo directory", "error", err)
		os.Exit(1)
	}

	m, err := uptimerobot.New(
		uptimerobot.WithEndpoints(endpoints...),
		uptimerobot.WithSleepTime(5*time.Second),
		uptimerobot.WithRequestTimeout(time.Second),
		uptimerobot.WithLogDir(filepath.Join(dir, "logs")),
		uptimerobot.WithErrorDir(filepath.Join(dir, "errors")),
		uptimerobot.WithListenAddr(":8080"),
		uptimerobot.WithFailureHook(func(ev uptimerobot.Event) {
			fmt.Printf("  DOWN %-28s %d %s\n", ev.Endpoint, ev.StatusCode, ev.Message)
		}),
		uptimerobot.WithRecoveryHook(func(ev uptimerobot.Event) {
			fmt.Printf("  UP   %-28s after %s\n", ev.Endpoint, ev.Downtime().Round(time.Second))
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  uptimerobot demo")
	fmt.Println()
	fmt.Println("  Status:  http://localhost:8080/api/status")
	fmt.Println("  Stream:  http://localhost:8080/api/sse")
	fmt.Println("  Files:  ", dir)
	fmt.Println()
	fmt.Println("  Mock services flip between up and down every 20-60s;")
	fmt.Println("  \"slow\" always times out. Press Ctrl+C to stop.")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		slog.Error("monitor error", "error", err)
		os.Exit(1)
	}
}
