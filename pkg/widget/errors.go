package widget

import (
	"errors"
	"fmt"
)

// ErrConfig matches every ConfigError through errors.Is.
var ErrConfig = errors.New("widget: configuration error")

// Configuration error codes.
const (
	CodeInvalidID       = "invalid-id"
	CodeDuplicateID     = "duplicate-id"
	CodeIDConflict      = "id-conflict"
	CodeBadChild        = "bad-child"
	CodeBadValidator    = "bad-validator"
	CodeRequiredParam   = "required-param"
	CodeUnknownParam    = "unknown-param"
	CodeFixedParam      = "fixed-param"
	CodeParentCycle     = "parent-cycle"
	CodeAlreadyPrepared = "already-prepared"
	CodeNotRoot         = "not-root"
)

// ConfigError reports a programming mistake in a widget definition or in the
// way an instance is driven. It is never recoverable by retrying.
type ConfigError struct {
	// Widget names the definition, by id when it has one.
	Widget  string
	Code    string
	Message string
	Err     error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e == nil {
		return "widget: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Widget != "" {
		msg = fmt.Sprintf("%s: %s", e.Widget, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "widget: " + msg
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErr(widget, code, format string, args ...any) *ConfigError {
	return &ConfigError{Widget: widget, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err carries the given code. An empty code
// matches any ConfigError.
func IsConfigError(err error, code string) bool {
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		return false
	}
	return code == "" || cerr.Code == code
}
