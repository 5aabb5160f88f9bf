package emitter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/emitter/domain"
)

// Listener is a registered handler. A Listener is identified by its pointer:
// registering the same *Listener twice in one bucket updates the existing
// entry.
//
// A Listener is also a namespace. Failures of the listener are emitted into
// its own registry, so recovery listeners for one particular listener are
// registered with the listener as namespace.
type Listener struct {
	Host

	id      uuid.UUID
	handler Handler
	dom     atomic.Pointer[domain.Domain]
}

// NewListener wraps h in a new listener handle.
func NewListener(h Handler) *Listener {
	return &Listener{id: uuid.New(), handler: h}
}

// ID returns the unique listener identifier.
func (l *Listener) ID() uuid.UUID {
	return l.id
}

// Handler returns the wrapped handler.
func (l *Listener) Handler() Handler {
	return l.handler
}

// Handle calls the wrapped handler directly, bypassing domain handling.
func (l *Listener) Handle(ctx context.Context, event any) Result {
	return l.handler.Handle(ctx, event)
}

// Domain returns the domain the listener is bound to, or nil.
func (l *Listener) Domain() *domain.Domain {
	return l.dom.Load()
}

// Bind binds the listener to d. Binding is sticky: rebinding to the same
// domain is a no-op, binding to another domain fails with ErrDomainConflict.
// A nil domain is ignored.
func (l *Listener) Bind(d *domain.Domain) error {
	if d == nil {
		return nil
	}
	if l.dom.CompareAndSwap(nil, d) {
		return nil
	}
	if cur := l.dom.Load(); cur != d {
		return fmt.Errorf("%w: listener %s is bound to %s, not %s", ErrDomainConflict, l, cur, d)
	}
	return nil
}

// String implements fmt.Stringer.
func (l *Listener) String() string {
	return l.id.String()[:8]
}

// Host lazily provides a listener registry. Embed it in a struct to make
// that struct a Namespace with an explicitly attached registry.
type Host struct {
	once      sync.Once
	listeners *Listeners
}

// EventListeners implements Namespace.
func (h *Host) EventListeners() *Listeners {
	h.once.Do(func() {
		h.listeners = NewListeners()
	})
	return h.listeners
}
