package domain

import (
	"context"
	"errors"
	"sync"
)

// Future is a one-shot completion handle for asynchronous work. A future may
// be bound to the domain that will complete it.
type Future struct {
	dom  *Domain
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns a pending future that is not bound to any domain.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already completed with err.
func Resolved(err error) *Future {
	f := NewFuture()
	f.Resolve(err)
	return f
}

// Domain returns the domain the future is bound to, or nil.
func (f *Future) Domain() *Domain {
	return f.dom
}

// Resolve completes the future with err. Only the first completion counts;
// Resolve reports whether it was the one.
func (f *Future) Resolve(err error) bool {
	return f.complete(err)
}

// Cancel completes the future with ErrCancelled.
func (f *Future) Cancel() bool {
	return f.complete(ErrCancelled)
}

func (f *Future) complete(err error) (ok bool) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}

// Done returns a channel closed when the future completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the completion error, or ErrPending while the future is
// pending.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return ErrPending
	}
}

// Cancelled reports whether the future was cancelled.
func (f *Future) Cancelled() bool {
	select {
	case <-f.done:
		return errors.Is(f.err, ErrCancelled)
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs fn on a new goroutine and returns an unbound future resolved with
// its result. Panics are recovered into *PanicError. The context passed to fn
// is detached from any domain.
func Go(ctx context.Context, fn func(context.Context) error) *Future {
	f := NewFuture()
	ctx = Detach(ctx)
	go func() {
		f.Resolve(Execute(func() error { return fn(ctx) }))
	}()
	return f
}
