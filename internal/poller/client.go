package poller

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultRequestTimeout bounds a single check.
const DefaultRequestTimeout = 15 * time.Second

// connection pooling limits to prevent resource exhaustion when polling many endpoints
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// Response holds the result of an HTTP request made by [Client].
//
// Response captures the body (limited to 1MB), status code, latency, and any
// transport error. A non-nil Error means no usable response was received.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// OK reports whether the response counts as a successful check: a response
// was received and its status is below 400.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode > 0 && r.StatusCode < http.StatusBadRequest
}

// Client is the HTTP client shared by every check in a poll cycle.
//
// Certificate verification is disabled: the poller reports whether an
// endpoint answers, not whether its certificate chain is valid. Each request
// is bounded by the client's timeout, applied through the request context so
// that cancelling the parent context aborts in-flight checks immediately.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new polling [Client] with the given per-request timeout.
// A non-positive timeout selects [DefaultRequestTimeout].
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		timeout: timeout,
		httpClient: &http.Client{
			// no client-level timeout - the per-request context carries it
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // uptime checks ignore certificate validity
			},
		},
	}
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch performs a GET request against url and returns a structured [Response].
//
// Fetch always returns a Response; errors are captured in the Error field
// rather than returned separately. This simplifies handling in the scheduler.
//
// A body that fails to arrive in full is an error only for statuses of 400
// and above. A healthy status is final once the headers are in.
func (c *Client) Fetch(ctx context.Context, url string) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil && resp.StatusCode < http.StatusBadRequest {
		// the status alone decides a healthy check; keep what was read
		return Response{
			Body:       body,
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
		}
	}
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
