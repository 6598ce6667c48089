package uptimerobot

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	endpoints       []Endpoint
	requestTimeout  time.Duration
	sleepTime       time.Duration
	rotateInterval  time.Duration
	retention       time.Duration
	logDir          string
	errorDir        string
	maxConcurrency  int
	listenAddr      string
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)
	failureHooks    []func(Event)
	recoveryHooks   []func(Event)
}

// Option configures a [Monitor] during construction.
//
// Options return an error if validation fails.
type Option func(*monitorConfig) error

// WithEndpoint adds a single [Endpoint] to monitor.
//
// Can be called multiple times. At least one endpoint must be configured for
// [New] to succeed.
func WithEndpoint(e Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, e)
		return nil
	}
}

// WithEndpoints adds multiple [Endpoint] values to monitor.
func WithEndpoints(endpoints ...Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, endpoints...)
		return nil
	}
}

// WithRequestTimeout bounds every check. Defaults to 15 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return invalidOption("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithSleepTime sets the pause between the end of one cycle and the start of
// the next. Defaults to 15 seconds.
//
// Returns an error if the duration is zero or negative.
func WithSleepTime(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return invalidOption("sleep time must be positive")
		}
		cfg.sleepTime = d
		return nil
	}
}

// WithRotateInterval sets how old a log file may get before it is archived.
// Defaults to 24 hours.
func WithRotateInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return invalidOption("rotate interval must be positive")
		}
		cfg.rotateInterval = d
		return nil
	}
}

// WithRetention sets how long archived logs are kept. Defaults to 14 days.
func WithRetention(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return invalidOption("retention must be positive")
		}
		cfg.retention = d
		return nil
	}
}

// WithLogDir sets the directory holding endpoint logs and their archives.
// Defaults to "logs".
func WithLogDir(dir string) Option {
	return func(cfg *monitorConfig) error {
		if dir == "" {
			return invalidOption("log directory cannot be empty")
		}
		cfg.logDir = dir
		return nil
	}
}

// WithErrorDir sets the directory holding error markers. Defaults to "errors".
func WithErrorDir(dir string) Option {
	return func(cfg *monitorConfig) error {
		if dir == "" {
			return invalidOption("error directory cannot be empty")
		}
		cfg.errorDir = dir
		return nil
	}
}

// WithMaxConcurrency caps the number of checks in flight. Zero, the default,
// checks every endpoint at once.
//
// Returns an error if the value is negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *monitorConfig) error {
		if n < 0 {
			return invalidOption("max concurrency cannot be negative")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithListenAddr enables the status server on addr (e.g. ":8080").
// The server is disabled by default.
func WithListenAddr(addr string) Option {
	return func(cfg *monitorConfig) error {
		cfg.listenAddr = addr
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function to be called for every completed check.
//
// Callbacks execute in registration order, synchronously, from a single
// goroutine; they must not block. Panics are recovered and logged.
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(StatusResult)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithFailureHook registers a function fired once when an endpoint goes from
// healthy to failing.
//
// Hooks for different endpoints may run concurrently. Panics are recovered
// and logged. Nil hooks are silently ignored.
//
// Example:
//
//	m, err := uptimerobot.New(
//	    uptimerobot.WithEndpoints(endpoints...),
//	    uptimerobot.WithFailureHook(func(ev uptimerobot.Event) {
//	        log.Printf("%s is down: %d %s", ev.Endpoint, ev.StatusCode, ev.Message)
//	    }),
//	)
func WithFailureHook(h func(Event)) Option {
	return func(cfg *monitorConfig) error {
		if h == nil {
			return nil
		}
		cfg.failureHooks = append(cfg.failureHooks, h)
		return nil
	}
}

// WithRecoveryHook registers a function fired once when a failing endpoint
// succeeds again. The same concurrency rules as [WithFailureHook] apply.
func WithRecoveryHook(h func(Event)) Option {
	return func(cfg *monitorConfig) error {
		if h == nil {
			return nil
		}
		cfg.recoveryHooks = append(cfg.recoveryHooks, h)
		return nil
	}
}

func invalidOption(msg string) error {
	return errs.New(errs.CodeConfigValidateInvalidValue, msg)
}
