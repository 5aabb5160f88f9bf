package emitter

import (
	"context"
	"errors"
	"reflect"

	"github.com/dshills/emitter/scope"
)

type emitConfig struct {
	scope scope.Path
}

// EmitOption configures an emission.
type EmitOption func(*emitConfig)

// Scope limits the emission to listeners registered at s or at a less
// specific scope.
func Scope(s string) EmitOption {
	return func(c *emitConfig) {
		c.scope = scope.Parse(s)
	}
}

// Emit dispatches event to the listeners of ns on d and reports whether any
// listener ran.
//
// Listeners run one after the other, most specific scope and type first.
// Emit blocks until each listener, including work it returned as a future,
// has finished. It fails with:
//   - the event itself, when it is a fatal error (runtime.Error,
//     context.Canceled, context.DeadlineExceeded), without running anything;
//   - the event itself, when it is an error and no listener ran;
//   - the failure of a listener registered with RaiseOnError;
//   - ctx.Err() when ctx is done before the emission completes.
//
// A listener that panics with or returns a runtime.Error, or returns
// context.DeadlineExceeded while ctx is still live, stops the emission: the
// failure is returned as is, without recovery or sink report.
//
// A failing listener is first given to the listeners registered on the
// failing *Listener as namespace. If none of them handles it, the failure is
// reported to the dispatcher sink and the emission continues.
func Emit[N any](ctx context.Context, d *Dispatcher, ns *N, event any, opts ...EmitOption) (bool, error) {
	cfg := emitConfig{scope: scope.Root}
	for _, opt := range opts {
		opt(&cfg)
	}

	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return false, err
	}
	return d.emit(ctx, ls, event, cfg.scope)
}

func (d *Dispatcher) emit(ctx context.Context, ls *Listeners, event any, path scope.Path) (bool, error) {
	if isFatal(event) {
		return false, event.(error)
	}
	if err := checkEvent(event, path); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.stats.emitted.Add(1)
	steps := ls.resolve(event, path)

	if cfg := d.Config(); cfg.Dispatch.Trace {
		logger := d.Logger()
		logger.Debug().
			Str("event", typeName(event)).
			Str("scope", path.String()).
			Int("listeners", len(steps)).
			Msg("emit")
	}

	handled := false
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return handled, err
		}

		handled = true
		d.stats.listenersRun.Add(1)

		err := d.invoke(ctx, s.listener, s.event)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return handled, err
		}
		if isFatalFailure(err) {
			d.stats.failures.Add(1)
			d.stats.raised.Add(1)
			return handled, err
		}
		if err := d.fail(ctx, s, event, err); err != nil {
			return handled, err
		}
	}

	if !handled {
		d.stats.unhandled.Add(1)
		if err, ok := event.(error); ok {
			return false, err
		}
		return false, nil
	}
	d.stats.handled.Add(1)
	return true, nil
}

// fail handles a listener failure. It returns a non-nil error when the
// emission must stop.
func (d *Dispatcher) fail(ctx context.Context, s step, event any, failure error) error {
	d.stats.failures.Add(1)

	var recovery error
	if !isError(event) {
		handled, err := d.emit(ctx, s.listener.EventListeners(), failure, scope.Root)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if isFatalFailure(err) {
			return err
		}
		if err == nil && handled {
			d.stats.recovered.Add(1)
			return nil
		}
		if err != nil && !sameError(err, failure) {
			recovery = err
		}
	}

	if s.flags.Has(FlagRaiseOnError) {
		d.stats.raised.Add(1)
		return failure
	}

	d.stats.reported.Add(1)
	d.reportSink().Report(ctx, &ListenerError{
		Listener: s.listener,
		Event:    event,
		Err:      failure,
		Recovery: recovery,
	})
	return nil
}

// sameError reports whether a and b are the same error value without
// panicking on uncomparable error types.
func sameError(a, b error) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil || ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
