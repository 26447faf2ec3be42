// Package apperr defines the error kinds shared by repositories, services and handlers.
//
// Errors are wrapped with fmt.Errorf("...: %w") as they travel up and classified
// with errors.Is at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. The operation was not attempted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown user or day.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness or serialization failure. Retryable.
	ErrConflict = errors.New("conflict")
	// ErrStorage marks an unavailable or failing backing store.
	ErrStorage = errors.New("storage failure")
)

// Validation returns an ErrValidation with a client-facing message.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound with a client-facing message.
func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict wraps cause as an ErrConflict.
func Conflict(msg string, cause error) error {
	return &kindError{kind: ErrConflict, msg: msg, cause: cause}
}

// Storage wraps cause as an ErrStorage.
func Storage(msg string, cause error) error {
	return &kindError{kind: ErrStorage, msg: msg, cause: cause}
}

// Message returns the innermost client-facing message of err, or the
// generic kind text for server-side failures.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		if ke.kind == ErrValidation || ke.kind == ErrNotFound {
			return ke.msg
		}
		return ke.kind.Error()
	}
	return "internal error"
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}
