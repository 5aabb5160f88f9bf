package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running domain.
	ErrAlreadyRunning = errors.New("domain is already running")

	// ErrNotRunning is returned when work is handed to a stopped domain.
	ErrNotRunning = errors.New("domain is not running")

	// ErrCancelled is the result of a future that was cancelled.
	ErrCancelled = errors.New("future cancelled")

	// ErrPending is returned by Future.Err before the future completes.
	ErrPending = errors.New("future still pending")

	// ErrPanic matches any *PanicError through errors.Is.
	ErrPanic = errors.New("panic recovered")
)

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
