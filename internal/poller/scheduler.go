package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// TransportFailureStatus is recorded in place of an HTTP status when no
// response was received (DNS failure, refused connection, timeout, TLS error).
const TransportFailureStatus = 9000

// DefaultInterval is the sleep between the end of one cycle and the start of
// the next.
const DefaultInterval = 15 * time.Second

// StatusResult holds the outcome of checking a single endpoint.
type StatusResult struct {
	// EndpointName is the derived name of the checked endpoint.
	EndpointName string

	// URL is the target URL that was polled.
	URL string

	// StatusCode is the HTTP status, or [TransportFailureStatus] when the
	// request failed before a response arrived.
	StatusCode int

	// OK reports whether the check succeeded (status below 400).
	OK bool

	// Failing reports whether the endpoint is in the failing state after the
	// result was recorded.
	Failing bool

	// FailingSince is when the current failure run began, read while the
	// check still owned the endpoint. Zero when healthy or unknown.
	FailingSince time.Time

	// Message is the response body, or the transport error text, for failed checks.
	Message string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is the timestamp when the check was performed.
	CheckedAt time.Time

	// Error holds a transport error or a failure to persist the result.
	Error error
}

// State records check outcomes for one endpoint.
type State interface {
	OnFailure(message string, status int) error
	OnSuccess() error
	IsFailing() bool
	FailingSince() (time.Time, bool)
}

// Rotator rotates one endpoint's log.
type Rotator interface {
	RotateIfDue() (string, error)
}

// Target is one endpoint the scheduler checks every cycle.
type Target struct {
	// Name is the endpoint's derived name.
	Name string

	// URL is the polled URL.
	URL string

	// State receives the outcome of each check.
	State State

	// Logs is rotated before each cycle's checks start.
	Logs Rotator
}

// Config holds the scheduler's timing and concurrency settings.
type Config struct {
	// Interval is the pause after each completed cycle. Zero selects [DefaultInterval].
	Interval time.Duration

	// RequestTimeout bounds each check. Zero selects [DefaultRequestTimeout].
	RequestTimeout time.Duration

	// MaxConcurrency caps in-flight checks. Zero or less means one goroutine
	// per endpoint.
	MaxConcurrency int
}

// Scheduler runs poll cycles over a fixed set of targets.
//
// Each cycle rotates every target's log, then checks all remaining targets
// concurrently and waits for every check to finish before sleeping. Results
// are emitted on the [Scheduler.Results] channel once a cycle completes.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	targets []Target
	cfg     Config
	client  *Client
	results chan StatusResult
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new polling [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
// [Scheduler.RunCycle] runs a single cycle without starting the loop.
func NewScheduler(targets []Target, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		targets: targets,
		cfg:     cfg,
		client:  NewClient(cfg.RequestTimeout),
		results: make(chan StatusResult, len(targets)),
		logger:  logger,
	}
}

// Results returns a receive-only channel that emits [StatusResult] values.
//
// The channel is closed when the scheduler stops. Consumers should read from
// this channel until it is closed to receive all poll results.
func (s *Scheduler) Results() <-chan StatusResult {
	return s.results
}

// Start begins the polling loop in a background goroutine.
//
// The first cycle starts immediately; each later cycle starts one interval
// after the previous one finished. The loop runs until [Scheduler.Stop] is
// called or ctx is cancelled.
//
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-timer.C:
			}

			results, err := s.RunCycle(pollCtx)
			if err != nil {
				s.logger.Warn("poll cycle finished with errors", "error", err)
			}
			for _, r := range results {
				select {
				case s.results <- r:
				case <-pollCtx.Done():
					return
				}
			}

			timer.Reset(s.cfg.Interval)
		}
	}()
}

// Stop halts the scheduler and waits for the loop to exit.
//
// A cycle in progress is abandoned: in-flight requests are cancelled and
// their outcomes are not recorded. Stop is idempotent and safe to call
// multiple times. Calling Stop before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// clean up client connections after all goroutines complete
	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// RunCycle performs one poll cycle and returns the results sorted by
// endpoint name.
//
// Log rotation runs first, one target at a time. A target whose rotation
// fails is skipped for this cycle. The remaining targets are checked
// concurrently; RunCycle returns once all of them are done. Errors from
// individual targets are joined into the returned error and never stop
// other targets from being checked.
func (s *Scheduler) RunCycle(ctx context.Context) ([]StatusResult, error) {
	due := make([]Target, 0, len(s.targets))
	var rotateErrs []error
	for _, t := range s.targets {
		archive, err := t.Logs.RotateIfDue()
		if err != nil {
			s.logger.Error("log rotation failed, skipping check",
				"endpoint", t.Name,
				"error", err,
			)
			rotateErrs = append(rotateErrs, err)
			continue
		}
		if archive != "" {
			s.logger.Info("log rotated", "endpoint", t.Name, "archive", archive)
		}
		due = append(due, t)
	}

	p := pool.NewWithResults[StatusResult]().
		WithContext(ctx).
		WithCollectErrored()
	if s.cfg.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(s.cfg.MaxConcurrency)
	}

	for _, t := range due {
		p.Go(func(ctx context.Context) (StatusResult, error) {
			return s.checkTarget(ctx, t)
		})
	}

	collected, err := p.Wait()

	// abandoned checks carry no result
	results := make([]StatusResult, 0, len(collected))
	for _, r := range collected {
		if r.EndpointName != "" {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].EndpointName < results[j].EndpointName
	})

	return results, errs.Join(append(rotateErrs, err)...)
}

// checkTarget fetches one target and records the outcome with its state.
// A panic is recovered, logged with a correlation ID, and returned as an error.
func (s *Scheduler) checkTarget(ctx context.Context, t Target) (result StatusResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("check panic",
				"correlation_id", correlationID,
				"endpoint", t.Name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = errs.Errorf(errs.CodePollerPanic, "check panic (correlation_id: %s)", correlationID)
			result = StatusResult{
				EndpointName: t.Name,
				URL:          t.URL,
				CheckedAt:    time.Now(),
				Error:        err,
			}
		}
	}()

	resp := s.client.Fetch(ctx, t.URL)

	if resp.Error != nil && ctx.Err() != nil {
		// shutting down: an interrupted request says nothing about the endpoint
		s.logger.Debug("check abandoned", "endpoint", t.Name, "url", t.URL)
		return StatusResult{}, nil
	}

	result = StatusResult{
		EndpointName: t.Name,
		URL:          t.URL,
		StatusCode:   resp.StatusCode,
		OK:           resp.OK(),
		Latency:      resp.Latency,
		CheckedAt:    time.Now(),
		Error:        resp.Error,
	}

	var stateErr error
	switch {
	case resp.Error != nil:
		result.StatusCode = TransportFailureStatus
		result.Message = resp.Error.Error()
		s.logger.Warn("endpoint unreachable",
			"url", t.URL,
			"status", TransportFailureStatus,
			"error", resp.Error,
		)
		stateErr = t.State.OnFailure(result.Message, TransportFailureStatus)
	case !resp.OK():
		result.Message = string(resp.Body)
		s.logger.Info("endpoint checked",
			"url", t.URL,
			"status", resp.StatusCode,
			"latency_ms", resp.Latency.Milliseconds(),
		)
		stateErr = t.State.OnFailure(result.Message, resp.StatusCode)
	default:
		s.logger.Info("endpoint checked",
			"url", t.URL,
			"status", resp.StatusCode,
			"latency_ms", resp.Latency.Milliseconds(),
		)
		stateErr = t.State.OnSuccess()
	}

	result.Failing = t.State.IsFailing()
	if result.Failing {
		if since, ok := t.State.FailingSince(); ok {
			result.FailingSince = since
		}
	}

	if stateErr != nil {
		s.logger.Error("recording check result failed",
			"endpoint", t.Name,
			"error", stateErr,
		)
		result.Error = errs.Join(result.Error, stateErr)
		return result, stateErr
	}
	return result, nil
}
