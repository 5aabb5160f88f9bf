package emitter

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/emitter/domain"
)

func TestEmit_EventScenario(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("scenario")

	var got []Event
	_, err := On[Event](ctx, d, ns, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{Data: "x"})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Data)

	handled, err = Emit(ctx, d, ns, Other{Data: "y"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Len(t, got, 1)
}

func TestEmit_Supertypes(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("super")
	rec := &recorder{}

	var base Base
	_, err := On[Base](ctx, d, ns, func(_ context.Context, b Base) error {
		base = b
		rec.add("base")
		return nil
	})
	require.NoError(t, err)
	_, err = On[Named](ctx, d, ns, record[Named](rec, "named"))
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "event"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{Base: Base{ID: 42}})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"event", "base", "named"}, rec.list())
	assert.Equal(t, 42, base.ID)
}

func TestEmit_SupertypesNearestFirst(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("nearest")
	rec := &recorder{}

	_, err := On[Named](ctx, d, ns, record[Named](rec, "named"))
	require.NoError(t, err)
	_, err = On[Base](ctx, d, ns, record[Base](rec, "base"))
	require.NoError(t, err)
	_, err = On[Core](ctx, d, ns, record[Core](rec, "core"))
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "event"))
	require.NoError(t, err)
	_, err = On[Mid](ctx, d, ns, record[Mid](rec, "mid"))
	require.NoError(t, err)
	_, err = On[Deep](ctx, d, ns, record[Deep](rec, "deep"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Deep{Mid: &Mid{}, Event: Event{Base: Base{ID: 1}}})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"deep", "mid", "event", "core", "base", "named"}, rec.list())

	// A nil *Mid hides Mid and Core.
	rec.calls = nil
	_, err = Emit(ctx, d, ns, Deep{Event: Event{Base: Base{ID: 2}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"deep", "event", "base", "named"}, rec.list())
}

func TestEmit_PointerEmbeddedSupertype(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("ptr-embed")

	var got []Base
	_, err := On[Base](ctx, d, ns, func(_ context.Context, b Base) error {
		got = append(got, b)
		return nil
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Wrapped{Base: &Base{ID: 1}})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []Base{{ID: 1}}, got)

	handled, err = Emit(ctx, d, ns, &Wrapped{Base: &Base{ID: 2}})
	require.NoError(t, err)
	assert.True(t, handled)

	handled, err = Emit(ctx, d, ns, Wrapped{})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, []Base{{ID: 1}, {ID: 2}}, got)
}

func TestEmit_PointerEvents(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("ptr")
	rec := &recorder{}

	_, err := On[*Event](ctx, d, ns, record[*Event](rec, "ptr"))
	require.NoError(t, err)
	_, err = On[Base](ctx, d, ns, record[Base](rec, "base"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, &Event{Data: "p"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"ptr", "base"}, rec.list())

	// A value event only reaches the embedded type listener.
	rec.calls = nil
	handled, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"base"}, rec.list())
}

func TestEmit_FatalEventsAreReturned(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("fatal")

	var calls atomic.Int32
	_, err := On[error](ctx, d, ns, func(context.Context, error) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	for _, ev := range []error{fatalError{}, context.Canceled, context.DeadlineExceeded} {
		handled, err := Emit(ctx, d, ns, ev)
		assert.False(t, handled)
		assert.Equal(t, ev, err)
	}
	assert.Zero(t, calls.Load())
}

func TestEmit_UnhandledErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("errors")
	boom := errors.New("boom")

	handled, err := Emit(ctx, d, ns, boom)
	assert.False(t, handled)
	assert.Same(t, boom, err)

	_, err = On[error](ctx, d, ns, func(context.Context, error) error { return nil })
	require.NoError(t, err)

	handled, err = Emit(ctx, d, ns, boom)
	assert.True(t, handled)
	assert.NoError(t, err)
}

func TestEmit_InvalidEvents(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("invalid")

	_, err := Emit(ctx, d, ns, nil)
	assert.ErrorIs(t, err, ErrNilEvent)

	_, err = Emit(ctx, d, ns, nil, Scope("..."))
	assert.ErrorIs(t, err, ErrNilEvent)

	_, err = Emit(ctx, d, ns, reflect.TypeOf(Event{}))
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = Emit[namespace](ctx, d, nil, Event{})
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestEmit_NilEventWithScope(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("nil")

	var got []any
	_, err := OnScope(ctx, d, ns, "job.done", func(_ context.Context, e any) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, nil, Scope("job.done.ok"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []any{nil}, got)

	handled, err = Emit(ctx, d, ns, nil, Scope("job"))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestEmit_ScopeOrdering(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("scopes")
	rec := &recorder{}

	for _, s := range []string{"a", "a.b", "a.b.c"} {
		_, err := On[Event](ctx, d, ns, record[Event](rec, s), InScope(s))
		require.NoError(t, err)
	}

	handled, err := Emit(ctx, d, ns, Event{}, Scope("a.b.c"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"a.b.c", "a.b", "a"}, rec.list())

	rec.calls = nil
	handled, err = Emit(ctx, d, ns, Event{}, Scope("a"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"a"}, rec.list())

	// Scoped listeners do not see unscoped emissions.
	rec.calls = nil
	handled, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, rec.list())
}

func TestEmit_OnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("once")

	var calls atomic.Int32
	_, err := On[Event](ctx, d, ns, func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}, Once())
	require.NoError(t, err)

	const n = 64
	var handledCount atomic.Int32
	var eg errgroup.Group
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			<-start
			handled, err := Emit(ctx, d, ns, Event{})
			if handled {
				handledCount.Add(1)
			}
			return err
		})
	}
	close(start)
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), handledCount.Load())
}

func TestEmit_RemoveDuringDispatch(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher()
	ns := newNamespace("mid")
	rec := &recorder{}

	var (
		second  *Listener
		removed []bool
	)
	_, err := On[Event](ctx, d, ns, func(context.Context, Event) error {
		rec.add("first")
		ok, err := Remove(d, ns, ForListener(second))
		removed = append(removed, ok)
		return err
	})
	require.NoError(t, err)
	second, err = On[Event](ctx, d, ns, record[Event](rec, "second"))
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "third"))
	require.NoError(t, err)

	_, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, rec.list())

	rec.calls = nil
	_, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, rec.list())
	assert.Equal(t, []bool{true, false}, removed)
}

func TestEmit_FailureGoesToSink(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("sink")
	rec := &recorder{}
	boom := errors.New("boom")

	failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return boom })
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{Data: "x"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"after"}, rec.list())

	reports := sink.list()
	require.Len(t, reports, 1)
	assert.Same(t, failing, reports[0].Listener)
	assert.ErrorIs(t, reports[0], boom)
	assert.Equal(t, Event{Data: "x"}, reports[0].Event)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, uint64(1), stats.Reported)
	assert.Equal(t, uint64(2), stats.ListenersRun)
}

func TestEmit_FailureRecoveredByListenerNamespace(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("recover")
	boom := errors.New("boom")

	failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return boom })
	require.NoError(t, err)

	var recovered error
	_, err = On[error](ctx, d, failing, func(_ context.Context, err error) error {
		recovered = err
		return nil
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Same(t, boom, recovered)
	assert.Empty(t, sink.list())
	assert.Equal(t, uint64(1), d.Stats().Recovered)
}

func TestEmit_FailingRecoveryIsAttached(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("recover-fails")
	boom, worse := errors.New("boom"), errors.New("worse")

	failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return boom })
	require.NoError(t, err)
	_, err = On[error](ctx, d, failing, func(context.Context, error) error { return worse }, RaiseOnError())
	require.NoError(t, err)

	_, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)

	reports := sink.list()
	require.Len(t, reports, 1)
	assert.Same(t, boom, reports[0].Err)
	assert.Same(t, worse, reports[0].Recovery)
}

func TestEmit_RaiseOnError(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("raise")
	rec := &recorder{}
	boom := errors.New("boom")

	_, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return boom }, RaiseOnError())
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	assert.True(t, handled)
	assert.Same(t, boom, err)
	assert.Empty(t, rec.list())
	assert.Empty(t, sink.list())
}

func TestEmit_ErrorEventFailureSkipsRecovery(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("error-event")
	boom := errors.New("boom")

	failing, err := On[error](ctx, d, ns, func(context.Context, error) error { return boom })
	require.NoError(t, err)

	var recovered bool
	_, err = On[error](ctx, d, failing, func(context.Context, error) error {
		recovered = true
		return nil
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, errors.New("event"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.False(t, recovered)
	assert.Len(t, sink.list(), 1)
}

func TestEmit_PanicIsReported(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("panic")

	_, err := On[Event](ctx, d, ns, func(context.Context, Event) error {
		panic("kaboom")
	})
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.True(t, handled)

	reports := sink.list()
	require.Len(t, reports, 1)
	var pe *domain.PanicError
	require.ErrorAs(t, reports[0], &pe)
	assert.Equal(t, "kaboom", pe.Value)
}

func TestEmit_FatalPanicStopsEmission(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("fatal-panic")
	rec := &recorder{}

	failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.NoError(t, err)
	_, err = On[error](ctx, d, failing, record[error](rec, "recovery"))
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	assert.True(t, handled)
	var rerr runtime.Error
	require.ErrorAs(t, err, &rerr)
	var pe *domain.PanicError
	assert.ErrorAs(t, err, &pe)

	assert.Empty(t, rec.list())
	assert.Empty(t, sink.list())
	assert.Equal(t, uint64(1), d.Stats().Raised)
}

func TestEmit_FatalErrorReturnedByListener(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"runtime error", fatalError{}},
		{"deadline exceeded", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			d, sink := newTestDispatcher()
			ns := newNamespace("fatal-return")
			rec := &recorder{}

			failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return tt.err })
			require.NoError(t, err)
			_, err = On[error](ctx, d, failing, record[error](rec, "recovery"))
			require.NoError(t, err)
			_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
			require.NoError(t, err)

			handled, err := Emit(ctx, d, ns, Event{})
			assert.True(t, handled)
			assert.Equal(t, tt.err, err)
			assert.Empty(t, rec.list())
			assert.Empty(t, sink.list())
		})
	}
}

func TestEmit_FatalRecoveryFailureStopsEmission(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("fatal-recovery")
	rec := &recorder{}

	failing, err := On[Event](ctx, d, ns, func(context.Context, Event) error { return errors.New("boom") })
	require.NoError(t, err)
	_, err = On[error](ctx, d, failing, func(context.Context, error) error { return fatalError{} })
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
	require.NoError(t, err)

	_, err = Emit(ctx, d, ns, Event{})
	assert.Equal(t, fatalError{}, err)
	assert.Empty(t, rec.list())
	assert.Empty(t, sink.list())
}

func TestEmit_ContextCancellationPropagates(t *testing.T) {
	d, sink := newTestDispatcher()
	ns := newNamespace("cancel")
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := On[Event](ctx, d, ns, func(ctx context.Context, _ Event) error {
		rec.add("blocking")
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "never"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	assert.True(t, handled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"blocking"}, rec.list())
	assert.Empty(t, sink.list())

	_, err = Emit(ctx, d, ns, Event{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmit_ListenerCancellationIsSwallowed(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("inner-cancel")
	rec := &recorder{}

	_, err := OnAsync[Event](ctx, d, ns, func(context.Context, Event) *domain.Future {
		f := domain.NewFuture()
		f.Cancel()
		return f
	})
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, func(context.Context, Event) error {
		inner, cancel := context.WithCancel(context.Background())
		cancel()
		return inner.Err()
	})
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "after"))
	require.NoError(t, err)

	handled, err := Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"after"}, rec.list())
	assert.Empty(t, sink.list())
}

func TestEmit_AsyncListenerIsAwaited(t *testing.T) {
	ctx := context.Background()
	d, sink := newTestDispatcher()
	ns := newNamespace("async")
	rec := &recorder{}
	boom := errors.New("async boom")

	_, err := OnAsync[Event](ctx, d, ns, func(ctx context.Context, _ Event) *domain.Future {
		return domain.Go(ctx, func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			rec.add("async")
			return boom
		})
	})
	require.NoError(t, err)
	_, err = On[Event](ctx, d, ns, record[Event](rec, "sync"))
	require.NoError(t, err)

	_, err = Emit(ctx, d, ns, Event{})
	require.NoError(t, err)
	assert.Equal(t, []string{"async", "sync"}, rec.list())

	reports := sink.list()
	require.Len(t, reports, 1)
	assert.Same(t, boom, reports[0].Err)
}

func TestSameError(t *testing.T) {
	boom := errors.New("boom")
	assert.True(t, sameError(boom, boom))
	assert.False(t, sameError(boom, errors.New("boom")))

	multi := multiError{boom}
	assert.True(t, sameError(multi, multi))
	assert.False(t, sameError(multi, multiError{boom}))
}

type multiError []error

func (m multiError) Error() string { return "multi" }
