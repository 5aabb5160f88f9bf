package emitter

import (
	"context"
	"errors"

	"github.com/dshills/emitter/domain"
)

// invoke runs one listener and waits for its outcome on behalf of the
// caller.
//
// The listener runs on its bound domain, or on the caller's domain when it
// is unbound. When that is the caller's own domain (or neither side has a
// domain) the handler is called in place; otherwise the call is handed to
// the target domain and the caller blocks until it has run. A caller running
// on a domain keeps serving that domain's queue while it blocks.
//
// Cancellation of the listener's own work is swallowed. Cancellation of ctx
// is returned.
func (d *Dispatcher) invoke(ctx context.Context, l *Listener, event any) error {
	caller := domain.FromContext(ctx)
	target := l.Domain()
	if target == nil {
		target = caller
	}
	if target != nil && !target.IsRunning() {
		return &StoppedDomainError{Listener: l, Domain: target}
	}

	if target == caller {
		return settle(ctx, l, target, caller, call(ctx, l, event))
	}

	var res Result
	handoff := domain.NewFuture()
	err := target.Submit(ctx, func(ctx context.Context) {
		res = call(ctx, l, event)
		handoff.Resolve(nil)
	})
	if errors.Is(err, domain.ErrNotRunning) {
		return &StoppedDomainError{Listener: l, Domain: target}
	}
	if err != nil {
		return err
	}
	if err := await(ctx, caller, handoff); err != nil {
		return err
	}
	return settle(ctx, l, target, caller, res)
}

// call runs the handler, converting a panic into a *domain.PanicError.
func call(ctx context.Context, l *Listener, event any) (res Result) {
	err := domain.Execute(func() error {
		res = l.handler.Handle(ctx, event)
		return nil
	})
	if err != nil {
		return Done(err)
	}
	return res
}

// settle waits for a pending result and classifies the outcome.
func settle(ctx context.Context, l *Listener, target, caller *domain.Domain, res Result) error {
	if !res.Pending() {
		return swallowCancel(ctx, res.Err())
	}

	f := res.Future()
	if fd := f.Domain(); fd != nil && fd != target {
		return &ListenerDomainError{Listener: l, Domain: target, FutureDomain: fd}
	}

	err := await(ctx, caller, f)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return swallowCancel(ctx, err)
}

// await waits for f, serving the caller's domain meanwhile.
func await(ctx context.Context, caller *domain.Domain, f *domain.Future) error {
	if caller != nil {
		return caller.Await(ctx, f)
	}
	return f.Wait(ctx)
}

// swallowCancel drops cancellations that belong to the listener. They are
// kept when ctx itself is done.
func swallowCancel(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
