// Package poller runs uptime check cycles.
//
// The main components are:
//
//   - [Client]: shared HTTP client with a per-request timeout and body limit
//   - [Scheduler]: rotates logs, then checks every endpoint concurrently,
//     once per cycle, sleeping a fixed interval between cycles
//   - [Target]: one endpoint together with its state and log
//   - [StatusResult]: outcome of checking a single endpoint
//
// Callers normally use the uptimerobot package, which builds the targets
// from configuration.
package poller
