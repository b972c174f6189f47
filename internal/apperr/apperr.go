// Package apperr defines the error taxonomy shared across ingestion and chat:
// a small set of kinds plus a retryable flag for provider failures.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	// KindNotFound means the requested session (or document) has no entry.
	KindNotFound Kind = "not_found"
	// KindInvalidInput means the request itself is malformed (empty question,
	// empty document, unsupported file).
	KindInvalidInput Kind = "invalid_input"
	// KindExternal means an embedding or generation provider call failed.
	KindExternal Kind = "external_service"
	// KindTimeout means an external call exceeded its budget. Always retryable.
	KindTimeout Kind = "timeout"
	// KindInternal means index corruption, merge failure, or another bug.
	KindInternal Kind = "internal"
)

// Error is a structured error with a kind, a human-readable message, and an
// optional wrapped cause. It never exposes stack traces to callers.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind. Timeouts are retryable.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: kind == KindTimeout}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Retryable: kind == KindTimeout, Err: cause}
}

// External returns a provider error with an explicit retryable flag.
func External(message string, retryable bool, cause error) *Error {
	return &Error{Kind: KindExternal, Message: message, Retryable: retryable, Err: cause}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is worth one retry with backoff.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
