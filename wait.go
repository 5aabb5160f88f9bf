package emitter

import (
	"context"
)

// Wait blocks until an event of type E is emitted in ns and returns it. The
// underlying listener fires once; it is removed if ctx is done first.
func Wait[E any, N any](ctx context.Context, d *Dispatcher, ns *N, opts ...ListenerOption) (E, error) {
	ch := make(chan E, 1)
	l, err := On[E](ctx, d, ns, func(_ context.Context, e E) error {
		deliver(ch, e)
		return nil
	}, append(opts, Once())...)
	if err != nil {
		var zero E
		return zero, err
	}
	return waitFor(ctx, d, ns, l, ch)
}

// WaitScope blocks until an emission reaches scope s in ns and returns its
// event, which may be nil.
func WaitScope[N any](ctx context.Context, d *Dispatcher, ns *N, s string, opts ...ListenerOption) (any, error) {
	ch := make(chan any, 1)
	l, err := OnScope(ctx, d, ns, s, func(_ context.Context, e any) error {
		deliver(ch, e)
		return nil
	}, append(opts, Once())...)
	if err != nil {
		return nil, err
	}
	return waitFor(ctx, d, ns, l, ch)
}

func deliver[E any](ch chan E, e E) {
	select {
	case ch <- e:
	default:
	}
}

func waitFor[E any, N any](ctx context.Context, d *Dispatcher, ns *N, l *Listener, ch chan E) (E, error) {
	select {
	case e := <-ch:
		return e, nil
	case <-ctx.Done():
	}

	_, _ = Remove(d, ns, ForListener(l))

	// The listener may have fired while it was being removed.
	select {
	case e := <-ch:
		return e, nil
	default:
		var zero E
		return zero, ctx.Err()
	}
}
