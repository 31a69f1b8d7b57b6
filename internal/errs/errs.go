// Package errs defines the typed error kinds handlers return and the
// transports translate. Handlers never panic across the executor boundary;
// they return an *Error tagged with one of the kinds below.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error category.
type Kind string

const (
	KindInvalidParams     Kind = "InvalidParams"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindResourceExhausted Kind = "ResourceExhausted"
	KindTransient         Kind = "Transient"
	KindInternal          Kind = "Internal"

	// Project-switch specific kinds, surfaced with troubleshooting hints.
	KindPreSwitchValidationFailed Kind = "PreSwitchValidationFailed"
	KindAtomicSwitchFailed        Kind = "AtomicSwitchFailed"
)

// Error is a typed error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidParams builds an InvalidParams error.
func InvalidParams(format string, args ...any) *Error {
	return New(KindInvalidParams, format, args...)
}

// NotFound builds a NotFound error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict builds a Conflict error.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Internal wraps err as an Internal error.
func Internal(err error, format string, args ...any) *Error {
	return Wrap(KindInternal, err, format, args...)
}

// Transient wraps err as a Transient error.
func Transient(err error, format string, args ...any) *Error {
	return Wrap(KindTransient, err, format, args...)
}

// KindOf extracts the kind of err, defaulting to Internal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRetryable reports whether the kind indicates a retry may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindResourceExhausted:
		return true
	}
	return false
}

// HTTPStatus maps an error kind to the HTTP status the transport returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidParams:
		return 400
	case KindNotFound:
		return 404
	case KindConflict, KindPreSwitchValidationFailed, KindAtomicSwitchFailed:
		return 409
	case KindResourceExhausted:
		return 429
	default:
		return 500
	}
}
