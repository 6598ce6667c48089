package uptimerobot

import (
	"time"

	"github.com/jpalmerr/uptimerobot/internal/poller"
)

// TransportFailureStatus is the status recorded when no HTTP response was
// received at all.
const TransportFailureStatus = poller.TransportFailureStatus

// StatusResult holds the outcome of checking a single endpoint.
type StatusResult struct {
	// EndpointName is the derived name of the checked endpoint.
	EndpointName string

	// URL is the target URL that was polled.
	URL string

	// StatusCode is the HTTP status code, or [TransportFailureStatus].
	StatusCode int

	// OK reports whether the check succeeded (status below 400).
	OK bool

	// Failing reports whether the endpoint is failing after this check.
	Failing bool

	// FailingSince is when the current failure run began. Zero when healthy.
	FailingSince time.Time

	// Message is the response body or transport error text of a failed check.
	Message string

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is the timestamp when the check was performed.
	CheckedAt time.Time

	// Error holds a transport error or a failure to persist the outcome.
	Error error
}

// Transition names an endpoint state change.
type Transition string

const (
	// TransitionFailing is healthy → failing.
	TransitionFailing Transition = "failing"

	// TransitionRecovered is failing → healthy.
	TransitionRecovered Transition = "recovered"
)

// Event is passed to failure and recovery hooks.
type Event struct {
	// Endpoint is the endpoint's derived name.
	Endpoint string

	// URL is the polled URL.
	URL string

	// Transition is the kind of change.
	Transition Transition

	// StatusCode is the failing status. Zero on recovery.
	StatusCode int

	// Message is the failure message. Empty on recovery.
	Message string

	// At is when the change was observed.
	At time.Time

	// FailingSince is when the failure run began. Set on recovery.
	FailingSince time.Time
}

// Downtime returns how long the endpoint was failing. Zero unless the event
// is a recovery with a known start.
func (e Event) Downtime() time.Duration {
	if e.Transition != TransitionRecovered || e.FailingSince.IsZero() {
		return 0
	}
	return e.At.Sub(e.FailingSince)
}

// EndpointState is the persisted error state of one endpoint.
type EndpointState struct {
	// Name is the endpoint's derived name.
	Name string

	// URL is the polled URL.
	URL string

	// Failing reports whether an error marker exists.
	Failing bool

	// FailingSince is the marker timestamp. Zero when healthy or unreadable.
	FailingSince time.Time
}
