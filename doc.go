// Package uptimerobot is a lightweight uptime monitor for HTTP(S) endpoints.
//
// A [Monitor] checks every configured [Endpoint] once per cycle, concurrently,
// then sleeps for a fixed time and starts over. For each endpoint it keeps:
//
//   - an error marker file that exists while the endpoint is failing and holds
//     the time the failure run began
//   - a log file with one line per failed check, rotated into gzip archives
//     once it is older than the rotation interval, with archives pruned after
//     the retention period
//
// A check fails when the endpoint answers with a status of 400 or above, or
// does not answer at all (recorded as status [TransportFailureStatus]).
//
// # Quick Start
//
//	ep, _ := uptimerobot.NewEndpoint("https://example.com/health")
//	m, _ := uptimerobot.New(
//	    uptimerobot.WithEndpoint(ep),
//	    uptimerobot.WithLogDir("/var/lib/uptimerobot/logs"),
//	    uptimerobot.WithErrorDir("/var/lib/uptimerobot/errors"),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Run(ctx) // blocks until context is cancelled
//
// # Naming
//
// An endpoint's name is derived from its URL: "http://" and "https://" are
// removed and every "/" and "#" becomes ".". "https://example.com/health"
// therefore logs to "logs/example.com.health.log" and marks failures in
// "errors/example.com.health".
//
// # Hooks
//
// [WithFailureHook] and [WithRecoveryHook] fire exactly once per state change,
// which is where alerting attaches. [WithStatusCallback] sees every check.
//
// # Thread Safety
//
// A Monitor is safe to use from one goroutine. Each endpoint is checked by at
// most one goroutine at a time and owns its files exclusively; only one
// process may poll a given set of directories, which the command-line tool
// enforces with a lock file.
package uptimerobot
