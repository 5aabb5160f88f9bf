package emitter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/emitter/domain"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event any) Result
}

// Result is the outcome of a Handler call. It is either immediate (Done) or
// pending on a future (Await).
type Result struct {
	err    error
	future *domain.Future
}

// Done returns an immediate result.
func Done(err error) Result {
	return Result{err: err}
}

// Await returns a result pending on f. A nil future is an immediate success.
func Await(f *domain.Future) Result {
	return Result{future: f}
}

// Pending reports whether the result waits on a future.
func (r Result) Pending() bool {
	return r.future != nil
}

// Err returns the immediate error.
func (r Result) Err() error {
	return r.err
}

// Future returns the pending future, or nil.
func (r Result) Future() *domain.Future {
	return r.future
}

// HandlerFunc adapts a function receiving events of type E.
type HandlerFunc[E any] func(ctx context.Context, event E) error

// Handle implements Handler.
func (f HandlerFunc[E]) Handle(ctx context.Context, event any) Result {
	e, err := cast[E](event)
	if err != nil {
		return Done(err)
	}
	return Done(f(ctx, e))
}

// AsyncHandlerFunc adapts a function that starts work for events of type E
// and returns a future completed when the work is done.
type AsyncHandlerFunc[E any] func(ctx context.Context, event E) *domain.Future

// Handle implements Handler.
func (f AsyncHandlerFunc[E]) Handle(ctx context.Context, event any) Result {
	e, err := cast[E](event)
	if err != nil {
		return Done(err)
	}
	return Await(f(ctx, e))
}

// cast converts an event to E. A nil event (scope-only emission) becomes
// the zero value.
func cast[E any](event any) (E, error) {
	var zero E
	if event == nil {
		return zero, nil
	}
	e, ok := event.(E)
	if !ok {
		return zero, fmt.Errorf("%w: listener for %s received %T", ErrDispatch, reflect.TypeFor[E](), event)
	}
	return e, nil
}

// Flag is a set of listener options.
type Flag uint8

const (
	// FlagOnce removes the listener when it is claimed by an emission.
	FlagOnce Flag = 1 << iota

	// FlagRaiseOnError makes a failure of the listener fail the emission
	// instead of being reported to the sink.
	FlagRaiseOnError
)

// Has reports whether all bits of o are set.
func (f Flag) Has(o Flag) bool {
	return f&o == o
}

// String returns a human-readable flag list.
func (f Flag) String() string {
	switch f {
	case 0:
		return "none"
	case FlagOnce:
		return "once"
	case FlagRaiseOnError:
		return "raise"
	case FlagOnce | FlagRaiseOnError:
		return "once|raise"
	default:
		return fmt.Sprintf("Flag(%d)", uint8(f))
	}
}
