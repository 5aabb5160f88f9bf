package emitter

import (
	"errors"
	"fmt"

	"github.com/dshills/emitter/domain"
)

// Sentinel errors for invalid usage. They are returned synchronously by the
// call that violated the contract, usually wrapped with details.
var (
	// ErrDispatch is the generic internal dispatch error. The domain errors
	// below also match it through errors.Is.
	ErrDispatch = errors.New("dispatch error")

	// ErrInvalidNamespace is returned for a nil or zero-size namespace.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrInvalidEventType is returned for the universal interface type, for
	// reflect.Type values and for other types that cannot key a listener.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrFatalEventType is returned when registering for a runtime.Error type.
	ErrFatalEventType = errors.New("fatal error types cannot be listened to")

	// ErrNilEvent is returned when a nil event is emitted without a scope.
	ErrNilEvent = errors.New("nil event must be accompanied by a scope")

	// ErrNilHandler is returned when a nil handler or listener is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrEmptyScope is returned when a scope-only registration has no scope.
	ErrEmptyScope = errors.New("scope cannot be empty")

	// ErrDomainConflict is returned when a listener already bound to one
	// domain is bound to another.
	ErrDomainConflict = errors.New("listener already bound to another domain")

	// ErrLifecycleActive is returned when entering an active lifecycle.
	ErrLifecycleActive = errors.New("lifecycle already active")

	// ErrLifecycleExited is returned when entering an exited lifecycle.
	ErrLifecycleExited = errors.New("lifecycle already exited")

	// ErrLifecycleInactive is returned when exiting or wrapping with a
	// lifecycle that is not active.
	ErrLifecycleInactive = errors.New("lifecycle not active")

	// ErrLifecycleNesting is returned when exiting a lifecycle that still has
	// an active nested lifecycle.
	ErrLifecycleNesting = errors.New("lifecycle has active nested lifecycle")

	// ErrListenerDomain matches *ListenerDomainError.
	ErrListenerDomain = errors.New("listener result bound to a foreign domain")

	// ErrStoppedDomain matches *StoppedDomainError.
	ErrStoppedDomain = errors.New("listener bound to a stopped domain")
)

// StoppedDomainError reports a listener whose execution domain is not
// running. Such a listener can never be serviced.
type StoppedDomainError struct {
	Listener *Listener
	Domain   *domain.Domain
}

// Error implements the error interface.
func (e *StoppedDomainError) Error() string {
	return fmt.Sprintf("listener %s bound to stopped domain %s", e.Listener, e.Domain)
}

// Is allows errors.Is to match ErrStoppedDomain and ErrDispatch.
func (e *StoppedDomainError) Is(target error) bool {
	return target == ErrStoppedDomain || target == ErrDispatch
}

// ListenerDomainError reports a listener that returned a future bound to a
// domain other than the one the listener runs on.
type ListenerDomainError struct {
	Listener     *Listener
	Domain       *domain.Domain
	FutureDomain *domain.Domain
}

// Error implements the error interface.
func (e *ListenerDomainError) Error() string {
	return fmt.Sprintf("listener %s on domain %v returned a future bound to domain %s",
		e.Listener, e.Domain, e.FutureDomain)
}

// Is allows errors.Is to match ErrListenerDomain and ErrDispatch.
func (e *ListenerDomainError) Is(target error) bool {
	return target == ErrListenerDomain || target == ErrDispatch
}

// ListenerError describes a listener failure that no recovery listener
// handled. It is what the Sink receives.
type ListenerError struct {
	// Listener is the listener that failed.
	Listener *Listener

	// Event is the event being dispatched.
	Event any

	// Err is the failure.
	Err error

	// Recovery is the error returned by the recovery emission, if it failed
	// with something other than Err.
	Recovery error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	msg := fmt.Sprintf("listener %s failed on %T: %v", e.Listener, e.Event, e.Err)
	if e.Recovery != nil {
		msg += fmt.Sprintf(" (recovery: %v)", e.Recovery)
	}
	return msg
}

// Unwrap returns the underlying failure.
func (e *ListenerError) Unwrap() error {
	return e.Err
}
