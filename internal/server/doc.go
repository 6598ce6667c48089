// Package server serves the read-only status API.
//
//   - "/": plain-text placeholder
//   - "/api/status" and "/api/status/{name}": JSON snapshots from the store
//   - "/api/sse": Server-Sent Events stream of updates
//
// The server shuts down gracefully on context cancellation, with a 5-second
// timeout for in-flight requests.
package server
