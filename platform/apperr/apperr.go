// Package apperr provides standardized domain error types for the application.
// Consumers use the error kind to decide whether a failure should be surfaced
// as a benign result, acknowledged as terminal, or propagated for redelivery.
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates the identity does not exist at the provider.
	KindNotFound
	// KindInvalidArgument indicates the provider rejected the request data.
	KindInvalidArgument
	// KindAlreadyExists indicates a conflict with existing provider state.
	KindAlreadyExists
	// KindUnavailable indicates a transient provider failure (network, rate limit).
	KindUnavailable
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for retry classification.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(message string) *Error {
	return New(KindInvalidArgument, message)
}

// AlreadyExists creates a conflict error.
func AlreadyExists(message string) *Error {
	return New(KindAlreadyExists, message)
}

// Unavailable creates a transient provider failure error.
func Unavailable(message string) *Error {
	return New(KindUnavailable, message)
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Retryable reports whether the error should trigger redelivery.
// NotFound, InvalidArgument and AlreadyExists are terminal: redelivering
// the same message cannot change the outcome. Everything else is assumed
// transient.
func Retryable(err error) bool {
	switch GetKind(err) {
	case KindNotFound, KindInvalidArgument, KindAlreadyExists:
		return false
	default:
		return true
	}
}
