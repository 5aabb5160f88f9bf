package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LifecycleState is the state of a Lifecycle.
type LifecycleState int

const (
	// LifecycleUnentered is the state of a new lifecycle.
	LifecycleUnentered LifecycleState = iota

	// LifecycleActive is the state between Enter and Exit.
	LifecycleActive

	// LifecycleExited is terminal.
	LifecycleExited
)

// String returns a human-readable state name.
func (s LifecycleState) String() string {
	switch s {
	case LifecycleUnentered:
		return "unentered"
	case LifecycleActive:
		return "active"
	case LifecycleExited:
		return "exited"
	default:
		return "unknown"
	}
}

type lifecycleKey struct{}

// Lifecycle tags the listeners registered while it is active so they can be
// removed together with ForLifecycle.
//
// Lifecycles nest through context.Context: Enter makes the lifecycle found in
// the context its parent. The tag of a nested lifecycle is also recorded in
// every active ancestor, so removing an ancestor's listeners removes those of
// lifecycles nested inside it.
//
//	lc := emitter.NewLifecycle()
//	ctx, err := lc.Enter(ctx)
//	...
//	emitter.On[Event](ctx, d, ns, fn) // tagged with lc
//	...
//	lc.Exit()
//	emitter.Remove(d, ns, emitter.ForLifecycle(lc))
//
// A Lifecycle is used once: it cannot be entered again after Exit.
type Lifecycle struct {
	id uuid.UUID

	mu       sync.Mutex
	state    LifecycleState
	parent   *Lifecycle
	children int
	ids      map[uuid.UUID]struct{}
}

// NewLifecycle creates an unentered lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		id:  uuid.New(),
		ids: make(map[uuid.UUID]struct{}),
	}
}

// NewLifecycleWithID creates an unentered lifecycle tagging with id.
func NewLifecycleWithID(id uuid.UUID) *Lifecycle {
	lc := NewLifecycle()
	lc.id = id
	return lc
}

// ID returns the tag of the lifecycle.
func (lc *Lifecycle) ID() uuid.UUID {
	return lc.id
}

// State returns the current state.
func (lc *Lifecycle) State() LifecycleState {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.state
}

// Active reports whether the lifecycle is between Enter and Exit.
func (lc *Lifecycle) Active() bool {
	return lc.State() == LifecycleActive
}

// Parent returns the lifecycle that was active in the context passed to
// Enter, or nil.
func (lc *Lifecycle) Parent() *Lifecycle {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.parent
}

// Enter activates the lifecycle and returns a context carrying it.
func (lc *Lifecycle) Enter(ctx context.Context) (context.Context, error) {
	lc.mu.Lock()
	switch lc.state {
	case LifecycleActive:
		lc.mu.Unlock()
		return ctx, ErrLifecycleActive
	case LifecycleExited:
		lc.mu.Unlock()
		return ctx, ErrLifecycleExited
	}
	lc.state = LifecycleActive
	lc.mu.Unlock()

	parent := LifecycleFrom(ctx)
	if parent != nil && !parent.adopt() {
		parent = nil
	}

	lc.mu.Lock()
	lc.parent = parent
	lc.mu.Unlock()

	lc.propagate(lc.id)
	return context.WithValue(ctx, lifecycleKey{}, lc), nil
}

// Exit deactivates the lifecycle. Lifecycles entered from it must exit
// first.
func (lc *Lifecycle) Exit() error {
	lc.mu.Lock()
	if lc.state != LifecycleActive {
		lc.mu.Unlock()
		return ErrLifecycleInactive
	}
	if lc.children > 0 {
		n := lc.children
		lc.mu.Unlock()
		return fmt.Errorf("%w: %d still active", ErrLifecycleNesting, n)
	}
	lc.state = LifecycleExited
	parent := lc.parent
	lc.mu.Unlock()

	if parent != nil {
		parent.release()
	}
	return nil
}

// Run enters the lifecycle, calls fn with the resulting context and exits.
func (lc *Lifecycle) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, err := lc.Enter(ctx)
	if err != nil {
		return err
	}
	err = fn(ctx)
	if exitErr := lc.Exit(); err == nil {
		err = exitErr
	}
	return err
}

// Contains reports whether tag is this lifecycle's tag, or was recorded in it
// by Add or by a lifecycle nested inside it.
func (lc *Lifecycle) Contains(tag uuid.UUID) bool {
	if tag == lc.id {
		return true
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	_, ok := lc.ids[tag]
	return ok
}

// Add records tag in the lifecycle and in every active ancestor.
func (lc *Lifecycle) Add(tag uuid.UUID) {
	lc.mu.Lock()
	lc.ids[tag] = struct{}{}
	lc.mu.Unlock()

	lc.propagate(tag)
}

// propagate records tag in every active ancestor.
func (lc *Lifecycle) propagate(tag uuid.UUID) {
	for a := lc.Parent(); a != nil; a = a.Parent() {
		a.mu.Lock()
		if a.state == LifecycleActive {
			a.ids[tag] = struct{}{}
		}
		a.mu.Unlock()
	}
}

// adopt registers an entering child. It fails when lc is no longer active.
func (lc *Lifecycle) adopt() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.state != LifecycleActive {
		return false
	}
	lc.children++
	return true
}

func (lc *Lifecycle) release() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.children--
}

// LifecycleFrom returns the innermost active lifecycle carried by ctx, or
// nil.
func LifecycleFrom(ctx context.Context) *Lifecycle {
	lc, _ := ctx.Value(lifecycleKey{}).(*Lifecycle)
	for lc != nil && !lc.Active() {
		lc = lc.Parent()
	}
	return lc
}

// Wrap returns a view of the registry of ns that tags every insert with lc,
// including inserts made after lc exits. lc must be active.
func Wrap[N any](lc *Lifecycle, d *Dispatcher, ns *N) (*Listeners, error) {
	if !lc.Active() {
		return nil, ErrLifecycleInactive
	}
	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return nil, err
	}
	return &Listeners{store: ls.store, tag: lc.id}, nil
}
