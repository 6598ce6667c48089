// Package errs wraps samber/oops with the machine-readable error codes used
// across uptimerobot.
//
// Codes are dotted identifiers of the form <component>.<operation>.<reason>.
// The final segment is the reason and is what the Is* helpers match on.
package errs

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigEndpointsEmpty       Code = "config.endpoints.empty"
	CodeConfigEndpointsDuplicate   Code = "config.endpoints.conflict"

	CodeEndpointInvalid Code = "endpoint.new.invalid_input"

	CodeLockAcquireHeld    Code = "lock.acquire.held"
	CodeLockAcquireFailure Code = "lock.acquire.failure"
	CodeLockReleaseFailure Code = "lock.release.failure"

	CodeLogAppendFailure Code = "logrotate.append.failure"
	CodeLogRotateFailure Code = "logrotate.rotate.failure"
	CodeLogPruneFailure  Code = "logrotate.prune.failure"

	CodeMarkerCreateFailure Code = "marker.create.failure"
	CodeMarkerDeleteFailure Code = "marker.delete.failure"
	CodeMarkerReadFailure   Code = "marker.read.failure"

	CodeMonitorSetupFailure Code = "monitor.setup.failure"

	CodePollerPanic Code = "poller.fetch.panic"

	CodeServerStartFailure Code = "server.start.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldEndpoint(value string) Attr {
	return Field("endpoint", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the code recorded in err's oops chain, or "" for plain
// errors. When codes are nested, oops reports the innermost one.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

// FieldsOf returns the structured context attached to err.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// Join combines per-endpoint errors from one poll cycle. It returns nil when
// every element is nil.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
