// Package tracker decides and persists the failing/healthy state of one
// endpoint.
//
// A [Tracker] pairs an error marker with the endpoint's log. Failures are
// always logged; the marker is created only on the healthy → failing
// transition and deleted only on failing → healthy. Both transitions fire an
// optional hook, which is where alerting would attach.
package tracker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/uptimerobot/internal/errs"
	"github.com/jpalmerr/uptimerobot/internal/marker"
)

// Transition identifies which state change fired a hook.
type Transition string

const (
	// TransitionFailing is the healthy → failing change.
	TransitionFailing Transition = "failing"

	// TransitionRecovered is the failing → healthy change.
	TransitionRecovered Transition = "recovered"
)

// Event describes a state transition.
type Event struct {
	// Endpoint is the endpoint's derived name.
	Endpoint string

	// URL is the polled URL.
	URL string

	// Transition is the kind of change.
	Transition Transition

	// StatusCode is the failing status (HTTP code or 9000). Zero on recovery.
	StatusCode int

	// Message is the failure message. Empty on recovery.
	Message string

	// At is when the transition was observed.
	At time.Time

	// FailingSince is when the run of failures started. Set on recovery when
	// the marker timestamp could be read.
	FailingSince time.Time
}

// Hook receives transition events.
type Hook func(Event)

// LineWriter is the log the tracker appends failures to.
type LineWriter interface {
	Append(status int, message string) error
}

// Tracker is the error state of a single endpoint.
//
// Tracker is not safe for concurrent use; the poller calls it from one
// goroutine per endpoint per cycle.
type Tracker struct {
	name       string
	url        string
	marker     marker.Marker
	log        LineWriter
	onFailing  Hook
	onRecovery Hook
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a [Tracker].
type Option func(*Tracker)

// WithFailingHook registers the hook fired on healthy → failing.
func WithFailingHook(h Hook) Option {
	return func(t *Tracker) {
		t.onFailing = h
	}
}

// WithRecoveryHook registers the hook fired on failing → healthy.
func WithRecoveryHook(h Hook) Option {
	return func(t *Tracker) {
		t.onRecovery = h
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used to report hook panics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates a tracker for the endpoint called name.
func New(name, url string, m marker.Marker, log LineWriter, opts ...Option) *Tracker {
	t := &Tracker{
		name:   name,
		url:    url,
		marker: m,
		log:    log,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the endpoint name this tracker belongs to.
func (t *Tracker) Name() string {
	return t.name
}

// IsFailing reports whether the endpoint is currently in the failing state.
func (t *Tracker) IsFailing() bool {
	return t.marker.Exists()
}

// FailingSince returns when the current run of failures started.
// ok is false when the endpoint is healthy or the marker is unreadable.
func (t *Tracker) FailingSince() (since time.Time, ok bool) {
	if !t.marker.Exists() {
		return time.Time{}, false
	}
	since, err := t.marker.Since()
	if err != nil {
		return time.Time{}, false
	}
	return since, true
}

// OnFailure records a failed check. The marker is created only when the
// endpoint was healthy; the log line is appended every time, even when the
// marker could not be written.
func (t *Tracker) OnFailure(message string, status int) error {
	now := t.now()

	var markErr error
	if !t.marker.Exists() {
		if markErr = t.marker.Create(now); markErr == nil {
			t.fire(t.onFailing, Event{
				Endpoint:   t.name,
				URL:        t.url,
				Transition: TransitionFailing,
				StatusCode: status,
				Message:    message,
				At:         now,
			})
		}
	}

	return errs.Join(markErr, t.log.Append(status, message))
}

// OnSuccess records a successful check. It deletes the marker when the
// endpoint was failing and is a no-op otherwise. Successes are not logged.
func (t *Tracker) OnSuccess() error {
	if !t.marker.Exists() {
		return nil
	}

	since, _ := t.marker.Since()
	if err := t.marker.Delete(); err != nil {
		return err
	}

	t.fire(t.onRecovery, Event{
		Endpoint:     t.name,
		URL:          t.url,
		Transition:   TransitionRecovered,
		At:           t.now(),
		FailingSince: since,
	})
	return nil
}

// fire calls h with panic recovery. A misbehaving hook must not undo the
// state change that has already been persisted.
func (t *Tracker) fire(h Hook, ev Event) {
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("transition hook panicked",
				"panic", fmt.Sprintf("%v", r),
				"endpoint", ev.Endpoint,
				"transition", string(ev.Transition),
			)
		}
	}()
	h(ev)
}
