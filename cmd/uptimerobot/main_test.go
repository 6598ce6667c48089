package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/uptimerobot"
	"github.com/jpalmerr/uptimerobot/internal/lock"
	"github.com/jpalmerr/uptimerobot/internal/marker"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

// setupBase writes a config.json and one endpoint file per URL into a
// fresh base directory. It returns the base directory and the lock path.
func setupBase(t *testing.T, urls ...string) (string, string) {
	t.Helper()

	base := t.TempDir()
	lockPath := filepath.Join(base, "uptimerobot.lock")

	cfg := map[string]any{
		"lockfile":        lockPath,
		"sleeptime":       1,
		"request_timeout": 2,
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "config.json"), data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configs := filepath.Join(base, "configs")
	if err := os.Mkdir(configs, 0o755); err != nil {
		t.Fatalf("mkdir configs: %v", err)
	}
	for i, u := range urls {
		name := filepath.Join(configs, string(rune('a'+i))+".json")
		if err := os.WriteFile(name, []byte(`{"url": "`+u+`"}`), 0o644); err != nil {
			t.Fatalf("write endpoint: %v", err)
		}
	}

	return base, lockPath
}

func TestVersion(t *testing.T) {
	out, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "uptimerobot dev") {
		t.Errorf("output = %q, want version line", out)
	}
}

func TestRunValidate_ValidConfig(t *testing.T) {
	base, _ := setupBase(t, "https://a.test/health", "http://b.test")

	out, err := executeCmd(t, "validate", "-c", "", "--base-dir", base)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		filepath.Join(base, "config.json"),
		"Sleep time:      1s",
		"Request timeout: 2s",
		"Endpoints:       2",
		"a.test.health (https://a.test/health)",
		"b.test (http://b.test)",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(out, phrase) {
			t.Errorf("output missing %q\ngot: %s", phrase, out)
		}
	}
}

func TestRunValidate_InvalidEndpoint(t *testing.T) {
	base, _ := setupBase(t, "http://a.test")
	bad := filepath.Join(base, "configs", "z.json")
	if err := os.WriteFile(bad, []byte(`{"url": "ftp://z.test"}`), 0o644); err != nil {
		t.Fatalf("write endpoint: %v", err)
	}

	_, err := executeCmd(t, "validate", "-c", "", "--base-dir", base)
	if err == nil {
		t.Fatal("validate expected error for invalid endpoint, got nil")
	}
	if !strings.Contains(err.Error(), "z.json") {
		t.Errorf("error = %v, want it to name z.json", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", filepath.Join(t.TempDir(), "nope.json"), "--base-dir", t.TempDir())
	if err == nil {
		t.Fatal("validate expected error for missing file, got nil")
	}
}

func TestRunValidate_NoEndpoints(t *testing.T) {
	base, _ := setupBase(t)

	_, err := executeCmd(t, "validate", "-c", "", "--base-dir", base)
	if err == nil {
		t.Fatal("validate expected error for empty endpoint directory, got nil")
	}
}

func TestRun_Once(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance\r\n"))
	}))
	defer srv.Close()

	base, lockPath := setupBase(t, srv.URL)

	if _, err := executeCmd(t, "run", "--once", "-c", "", "--base-dir", base, "--log-level", "error"); err != nil {
		t.Fatalf("run --once error = %v", err)
	}

	name := uptimerobot.DeriveName(srv.URL)
	if _, err := os.Stat(filepath.Join(base, "errors", name)); err != nil {
		t.Errorf("error marker missing: %v", err)
	}

	logData, err := os.ReadFile(filepath.Join(base, "logs", name+".log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(logData), " - 503 - maintenance\n") {
		t.Errorf("log = %q, want a 503 line", logData)
	}

	if lock.Held(lockPath) {
		t.Error("lock file left behind after run")
	}
}

func TestRun_LockHeld(t *testing.T) {
	base, lockPath := setupBase(t, "http://a.test")

	since := time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local)
	held, err := lock.Acquire(lockPath, since)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = held.Release() }()

	_, err = executeCmd(t, "run", "--once", "-c", "", "--base-dir", base, "--log-level", "error")
	if err == nil {
		t.Fatal("run expected error while the lock is held, got nil")
	}
	if want := "uptimerobot runs since 2026-03-01 08:30:00"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if !lock.Held(lockPath) {
		t.Error("losing run removed the holder's lock")
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	base, _ := setupBase(t, "http://a.test")

	_, err := executeCmd(t, "run", "--once", "-c", "", "--base-dir", base, "--log-level", "loud")
	if err == nil {
		t.Fatal("run expected error for invalid log level, got nil")
	}
	// restore for later tests sharing rootCmd
	_ = runCmd.Flags().Set("log-level", "info")
}

func TestStatus(t *testing.T) {
	base, _ := setupBase(t, "http://a.test", "http://b.test")

	errDir := filepath.Join(base, "errors")
	if err := os.Mkdir(errDir, 0o755); err != nil {
		t.Fatalf("mkdir errors: %v", err)
	}
	since := time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local)
	if err := marker.NewFile(filepath.Join(errDir, "b.test")).Create(since); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	out, err := executeCmd(t, "status", "-c", "", "--base-dir", base)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("status printed %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ENDPOINT") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "a.test") || !strings.Contains(lines[1], "up") {
		t.Errorf("line for a.test = %q", lines[1])
	}
	if !strings.Contains(lines[2], "failing") || !strings.Contains(lines[2], "2026-03-01 08:30:00") {
		t.Errorf("line for b.test = %q", lines[2])
	}
}
