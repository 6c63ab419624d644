package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Common error types used across the pipeflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed stream
	ErrClosed = errors.New("stream is closed")

	// ErrErrored indicates that an operation was attempted on an errored stream.
	// The stored error of the stream is wrapped alongside it.
	ErrErrored = errors.New("stream is errored")

	// ErrLocked indicates that the stream is locked to a reader
	ErrLocked = errors.New("stream is locked to a reader")

	// ErrNotReadable indicates that the readable stream no longer accepts chunks
	ErrNotReadable = errors.New("stream is not readable")

	// ErrNotWritable indicates that the writable stream no longer accepts chunks
	ErrNotWritable = errors.New("stream is not writable")

	// ErrCloseRequested indicates that close was already requested on the stream
	ErrCloseRequested = errors.New("close already requested")

	// ErrNoSource indicates that a readable stream has no underlying source
	ErrNoSource = errors.New("stream has no underlying source")

	// ErrReaderReleased indicates that the reader no longer holds the stream lock
	ErrReaderReleased = errors.New("reader lock released")

	// ErrInvalidChunkSize indicates that a size function returned an unusable size
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCanceled is the default reason used when a stream is canceled without one
	ErrCanceled = errors.New("stream canceled")

	// ErrAborted is the default reason used when a stream is aborted without one
	ErrAborted = errors.New("stream aborted")

	// ErrPanicked indicates that a user callback panicked
	ErrPanicked = errors.New("callback panicked")
)

// ValidationError describes a configuration value that was rejected.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure raised while running a stream operation,
// typically a source, sink or transformer hook.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for module.operation.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra context and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Errored wraps a stream's stored error so that callers can match both
// ErrErrored and the original cause.
func Errored(stored error) error {
	if stored == nil {
		return ErrErrored
	}
	return fmt.Errorf("%w: %w", ErrErrored, stored)
}

// Recover calls fn and turns a panic inside it into an error wrapping
// ErrPanicked, carrying the panic value and the goroutine's stack.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\nStack trace:\n%s", ErrPanicked, r, debug.Stack())
		}
	}()
	return fn()
}

// IsValidationError returns true if err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsTerminal returns true if the error reports that a stream reached a
// terminal state, as opposed to a misuse such as a lock conflict
func IsTerminal(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrErrored)
}
