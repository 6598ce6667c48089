package uptimerobot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jpalmerr/uptimerobot/internal/errs"
	"github.com/jpalmerr/uptimerobot/internal/logrotate"
	"github.com/jpalmerr/uptimerobot/internal/marker"
	"github.com/jpalmerr/uptimerobot/internal/poller"
	"github.com/jpalmerr/uptimerobot/internal/server"
	"github.com/jpalmerr/uptimerobot/internal/store"
	"github.com/jpalmerr/uptimerobot/internal/tracker"
)

const (
	defaultSleepTime      = poller.DefaultInterval
	defaultRequestTimeout = poller.DefaultRequestTimeout
	defaultLogDir         = "logs"
	defaultErrorDir       = "errors"
)

// Monitor polls a fixed set of endpoints forever, tracking each endpoint's
// failing/healthy state and maintaining its log.
//
// The typical lifecycle is:
//
//	m, err := uptimerobot.New(uptimerobot.WithEndpoints(endpoints...))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Run(ctx) // blocks until context cancelled
//
// Every endpoint is paired with its own tracker and log once, at
// construction; the set does not change while the monitor runs.
type Monitor struct {
	endpoints       []Endpoint
	targets         []poller.Target
	trackers        map[string]*tracker.Tracker
	scheduler       *poller.Scheduler
	store           *store.MemoryStore
	sleepTime       time.Duration
	requestTimeout  time.Duration
	logDir          string
	errorDir        string
	listenAddr      string
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)

	runMu   sync.Mutex
	running bool
}

// New creates a [Monitor] with the given options.
//
// At least one endpoint must be configured via [WithEndpoint] or
// [WithEndpoints], and no two endpoints may derive the same name. Defaults:
//   - Sleep time: 15 seconds
//   - Request timeout: 15 seconds
//   - Log rotation: every 24 hours, archives kept 14 days
//   - Directories: "logs" and "errors", relative to the working directory
//
// New does not touch the filesystem; directories are created when the first
// cycle runs.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		sleepTime:      defaultSleepTime,
		requestTimeout: defaultRequestTimeout,
		rotateInterval: logrotate.DefaultRotateInterval,
		retention:      logrotate.DefaultRetention,
		logDir:         defaultLogDir,
		errorDir:       defaultErrorDir,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.endpoints) == 0 {
		return nil, errs.New(errs.CodeConfigEndpointsEmpty, "at least one endpoint is required")
	}

	// the name keys the log and marker files, so it must be unique
	seen := make(map[string]string, len(cfg.endpoints))
	for _, ep := range cfg.endpoints {
		if prev, ok := seen[ep.name]; ok {
			return nil, errs.New(errs.CodeConfigEndpointsDuplicate,
				fmt.Sprintf("endpoints %q and %q both derive the name %q", prev, ep.url, ep.name),
				errs.FieldEndpoint(ep.name))
		}
		seen[ep.name] = ep.url
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		endpoints:       cfg.endpoints,
		trackers:        make(map[string]*tracker.Tracker, len(cfg.endpoints)),
		store:           store.NewMemoryStore(),
		sleepTime:       cfg.sleepTime,
		requestTimeout:  cfg.requestTimeout,
		logDir:          cfg.logDir,
		errorDir:        cfg.errorDir,
		listenAddr:      cfg.listenAddr,
		logger:          logger,
		statusCallbacks: cfg.statusCallbacks,
	}

	onFailing := m.hook(cfg.failureHooks)
	onRecovery := m.hook(cfg.recoveryHooks)

	for _, ep := range cfg.endpoints {
		log := logrotate.New(cfg.logDir, ep.name,
			logrotate.WithRotateInterval(cfg.rotateInterval),
			logrotate.WithRetention(cfg.retention),
		)
		tr := tracker.New(ep.name, ep.url, marker.NewFile(markerPath(cfg.errorDir, ep.name)), log,
			tracker.WithFailingHook(onFailing),
			tracker.WithRecoveryHook(onRecovery),
			tracker.WithLogger(logger),
		)
		m.trackers[ep.name] = tr
		m.targets = append(m.targets, poller.Target{
			Name:  ep.name,
			URL:   ep.url,
			State: tr,
			Logs:  log,
		})
	}

	m.scheduler = poller.NewScheduler(m.targets, poller.Config{
		Interval:       cfg.sleepTime,
		RequestTimeout: cfg.requestTimeout,
		MaxConcurrency: cfg.maxConcurrency,
	}, logger)

	return m, nil
}

// Run polls all endpoints until ctx is cancelled.
//
// The first cycle starts immediately; afterwards the monitor sleeps for the
// configured sleep time between cycles. Cancelling ctx aborts in-flight
// checks without recording them. When a listen address is configured the
// status server runs alongside.
//
// Run may be called once per Monitor. Returns nil on graceful shutdown, or an
// error if the directories cannot be created or the status server fails to start.
func (m *Monitor) Run(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return errs.New(errs.CodeMonitorSetupFailure, "monitor is already running")
	}
	m.running = true
	m.runMu.Unlock()

	m.logger.Info("uptimerobot starting",
		"endpoint_count", len(m.endpoints),
		"sleeptime", m.sleepTime.String(),
		"request_timeout", m.requestTimeout.String(),
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	if err := m.ensureDirs(); err != nil {
		return err
	}
	m.seedStore()

	if m.listenAddr != "" {
		srv := server.NewServer(m.store, m.listenAddr, m.logger)
		if err := srv.Start(ctx); err != nil {
			return err
		}
	}

	m.scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range m.scheduler.Results() {
			m.handleResult(result)
		}
	}()

	<-ctx.Done()
	m.scheduler.Stop() // closes results channel
	wg.Wait()

	m.logger.Info("uptimerobot stopped")
	return nil
}

// RunCycle performs a single poll cycle and returns the results sorted by
// endpoint name. Status callbacks fire for every result before RunCycle
// returns.
//
// The returned error joins every per-endpoint filesystem error of the cycle;
// results for the other endpoints are still returned. RunCycle must not be
// called while [Monitor.Run] is active.
func (m *Monitor) RunCycle(ctx context.Context) ([]StatusResult, error) {
	if err := m.ensureDirs(); err != nil {
		return nil, err
	}

	results, cycleErr := m.scheduler.RunCycle(ctx)

	public := make([]StatusResult, 0, len(results))
	for _, r := range results {
		public = append(public, m.handleResult(r))
	}
	return public, cycleErr
}

// States returns the persisted error state of every endpoint, in
// configuration order. It reads the marker files and does not run a check.
func (m *Monitor) States() []EndpointState {
	states := make([]EndpointState, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		tr := m.trackers[ep.name]
		since, failing := tr.FailingSince()
		states = append(states, EndpointState{
			Name:         ep.name,
			URL:          ep.url,
			Failing:      failing || tr.IsFailing(),
			FailingSince: since,
		})
	}
	return states
}

// Endpoints returns a copy of the configured endpoints.
func (m *Monitor) Endpoints() []Endpoint {
	cp := make([]Endpoint, len(m.endpoints))
	copy(cp, m.endpoints)
	return cp
}

// SleepTime returns the pause between cycles.
func (m *Monitor) SleepTime() time.Duration {
	return m.sleepTime
}

// LogPath returns the active log file of the endpoint called name.
func (m *Monitor) LogPath(name string) string {
	return logrotate.New(m.logDir, name).Path()
}

// MarkerPath returns the error marker file of the endpoint called name.
func (m *Monitor) MarkerPath(name string) string {
	return markerPath(m.errorDir, name)
}

func markerPath(dir, name string) string {
	return filepath.Join(dir, name)
}

func (m *Monitor) ensureDirs() error {
	for _, dir := range []string{m.logDir, m.errorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, errs.CodeMonitorSetupFailure, "creating directory", errs.FieldPath(dir))
		}
	}
	return nil
}

// seedStore registers every endpoint with its persisted state so the status
// API lists all of them before their first check.
func (m *Monitor) seedStore() {
	seeds := make([]store.StatusResult, 0, len(m.endpoints))
	for _, st := range m.States() {
		seed := store.StatusResult{Name: st.Name, URL: st.URL, State: store.StateUnknown}
		if st.Failing {
			seed.State = store.StateFailing
			if !st.FailingSince.IsZero() {
				since := st.FailingSince
				seed.FailingSince = &since
			}
		}
		seeds = append(seeds, seed)
	}
	m.store.Seed(seeds...)
}

// handleResult publishes one check result to the store and the callbacks.
func (m *Monitor) handleResult(r poller.StatusResult) StatusResult {
	// store update first (callbacks fire after data is recorded)
	m.store.Update(m.toStoreResult(r))

	public := StatusResult{
		EndpointName: r.EndpointName,
		URL:          r.URL,
		StatusCode:   r.StatusCode,
		OK:           r.OK,
		Failing:      r.Failing,
		FailingSince: r.FailingSince,
		Message:      r.Message,
		Latency:      r.Latency,
		CheckedAt:    r.CheckedAt,
		Error:        r.Error,
	}
	for _, cb := range m.statusCallbacks {
		invokeCallbackSafe(cb, public, m.logger)
	}

	// log results (DEBUG level for success to reduce noise)
	logAttrs := []any{
		"endpoint", r.EndpointName,
		"status", r.StatusCode,
		"failing", r.Failing,
		"latency_ms", r.Latency.Milliseconds(),
	}
	if r.Error != nil {
		m.logger.Warn("check completed with error", append(logAttrs, "error", r.Error.Error())...)
	} else {
		m.logger.Debug("check completed", logAttrs...)
	}

	return public
}

func (m *Monitor) toStoreResult(r poller.StatusResult) store.StatusResult {
	var errStr *string
	if r.Error != nil {
		s := r.Error.Error()
		errStr = &s
	}

	state := store.StateUp
	var failingSince *time.Time
	if r.Failing {
		state = store.StateFailing
		if !r.FailingSince.IsZero() {
			since := r.FailingSince
			failingSince = &since
		}
	}

	return store.StatusResult{
		Name:           r.EndpointName,
		URL:            r.URL,
		State:          state,
		StatusCode:     r.StatusCode,
		FailingSince:   failingSince,
		ResponseTimeMs: r.Latency.Milliseconds(),
		CheckedAt:      r.CheckedAt,
		Error:          errStr,
	}
}

// hook adapts the registered public hooks to a tracker hook.
func (m *Monitor) hook(hooks []func(Event)) tracker.Hook {
	if len(hooks) == 0 {
		return nil
	}
	return func(ev tracker.Event) {
		public := Event{
			Endpoint:     ev.Endpoint,
			URL:          ev.URL,
			Transition:   Transition(ev.Transition),
			StatusCode:   ev.StatusCode,
			Message:      ev.Message,
			At:           ev.At,
			FailingSince: ev.FailingSince,
		}
		for _, h := range hooks {
			invokeHookSafe(h, public, m.logger)
		}
	}
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StatusResult), result StatusResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"endpoint", result.EndpointName,
			)
		}
	}()
	cb(result)
}

func invokeHookSafe(h func(Event), ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transition hook panicked",
				"panic", r,
				"endpoint", ev.Endpoint,
				"transition", string(ev.Transition),
			)
		}
	}()
	h(ev)
}
