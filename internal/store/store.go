package store

import "time"

// Endpoint states as reported by the API.
const (
	StateUnknown = "unknown"
	StateUp      = "up"
	StateFailing = "failing"
)

// StatusResult is the last known status of one monitored endpoint, as
// served by the status API and streamed over SSE.
type StatusResult struct {
	// Name is the endpoint's derived name.
	Name string `json:"name"`

	// URL is the polled URL.
	URL string `json:"url"`

	// State is one of [StateUnknown], [StateUp] or [StateFailing].
	State string `json:"state"`

	// StatusCode is the last HTTP status, 9000 for a transport failure, or
	// zero before the first check.
	StatusCode int `json:"status_code"`

	// FailingSince is when the current run of failures started.
	FailingSince *time.Time `json:"failing_since"`

	// ResponseTimeMs is the last request latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is the timestamp of the last check. Zero before the first check.
	CheckedAt time.Time `json:"checked_at"`

	// Error is the last transport or persistence error.
	Error *string `json:"error"`
}

// Store holds the latest status per endpoint and fans updates out to
// subscribers.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a status result keyed by Name and notifies all subscribers.
	Update(result StatusResult)

	// Get returns the stored status for name.
	Get(name string) (StatusResult, bool)

	// GetAll returns a snapshot of all stored results sorted by Name.
	GetAll() []StatusResult

	// Subscribe returns a buffered channel that receives updates.
	// Slow consumers may miss updates. Callers must Unsubscribe when done.
	Subscribe() <-chan StatusResult

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan StatusResult)
}
