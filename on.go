package emitter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/dshills/emitter/domain"
	"github.com/dshills/emitter/scope"
)

// On registers fn for events of type E (and of types that embed E or, for an
// interface E, implement it) in namespace ns.
//
//	l, err := emitter.On[UserCreated](ctx, d, d.Global(), func(ctx context.Context, e UserCreated) error {
//	    return nil
//	}, emitter.Once())
//
// The listener is tagged with the innermost active Lifecycle of ctx.
func On[E any, N any](ctx context.Context, d *Dispatcher, ns *N, fn HandlerFunc[E], opts ...ListenerOption) (*Listener, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	l := NewListener(fn)
	if err := Attach[E](ctx, d, ns, l, opts...); err != nil {
		return nil, err
	}
	return l, nil
}

// OnAsync registers fn like On. Unless OnDomain is given, the listener is
// bound to the domain the caller is running on.
func OnAsync[E any, N any](ctx context.Context, d *Dispatcher, ns *N, fn AsyncHandlerFunc[E], opts ...ListenerOption) (*Listener, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	l := NewListener(fn)
	if cur := domain.FromContext(ctx); cur != nil {
		opts = append([]ListenerOption{OnDomain(cur)}, opts...)
	}
	if err := Attach[E](ctx, d, ns, l, opts...); err != nil {
		return nil, err
	}
	return l, nil
}

// OnScope registers fn for every emission whose scope is at least as
// specific as s, whatever the event type. Nil events are delivered as nil.
func OnScope[N any](ctx context.Context, d *Dispatcher, ns *N, s string, fn HandlerFunc[any], opts ...ListenerOption) (*Listener, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	path := scope.Parse(s)
	if path.IsRoot() {
		return nil, fmt.Errorf("%w: %q", ErrEmptyScope, s)
	}

	cfg := newListenerConfig(opts)
	cfg.scope = path

	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return nil, err
	}
	l := NewListener(fn)
	if err := d.attach(ctx, ls, nil, l, cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Attach registers an existing listener for events of type E. Attaching the
// same listener again to the same type and scope updates its options.
func Attach[E any, N any](ctx context.Context, d *Dispatcher, ns *N, l *Listener, opts ...ListenerOption) error {
	t := reflect.TypeFor[E]()
	if err := checkType(t); err != nil {
		return err
	}
	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return err
	}
	return d.attach(ctx, ls, t, l, newListenerConfig(opts))
}

// Listen returns a registrar for events of type E, applying opts to every
// function it registers.
func Listen[E any, N any](ctx context.Context, d *Dispatcher, ns *N, opts ...ListenerOption) func(HandlerFunc[E]) (*Listener, error) {
	return func(fn HandlerFunc[E]) (*Listener, error) {
		return On[E](ctx, d, ns, fn, opts...)
	}
}

func (d *Dispatcher) attach(ctx context.Context, ls *Listeners, t reflect.Type, l *Listener, cfg listenerConfig) error {
	if l == nil || l.handler == nil {
		return ErrNilHandler
	}
	if err := l.Bind(cfg.dom); err != nil {
		return err
	}

	tag := ls.tag
	if tag == uuid.Nil {
		if lc := LifecycleFrom(ctx); lc != nil {
			tag = lc.ID()
		}
	}

	ls.Insert(cfg.scope, t, l, cfg.flags, tag)

	logger := d.Logger()
	logger.Debug().
		Str("listener", l.String()).
		Str("type", typeString(t)).
		Str("scope", cfg.scope.String()).
		Stringer("flags", cfg.flags).
		Msg("listener registered")
	return nil
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<scope>"
	}
	return t.String()
}
