// Package emitter is an in-process, type-directed publish/subscribe
// dispatcher.
//
// Listeners are registered for a Go type, for a hierarchical scope, or both,
// inside a namespace. Emitting a value runs, in order, the listeners of the
// value's type and of its supertypes, for every scope from the emission's
// scope up to the root:
//
//	d := emitter.New()
//
//	emitter.On[UserCreated](ctx, d, d.Global(), func(ctx context.Context, e UserCreated) error {
//	    log.Printf("welcome %s", e.Name)
//	    return nil
//	})
//
//	handled, err := emitter.Emit(ctx, d, d.Global(), UserCreated{Name: "ada"})
//
// # Types
//
// The supertypes of a struct type are the exported types it embeds
// (breadth-first, nearest first), followed by the interface types that have
// listeners in the namespace and that the type implements. A listener for an
// embedded type receives the embedded value.
//
// Listeners cannot be registered for the empty interface, for reflect.Type,
// or for runtime.Error types. Emitting a runtime.Error, context.Canceled or
// context.DeadlineExceeded returns it without running any listener. Emitting
// an error that no listener handles returns the error.
//
// # Namespaces
//
// Any non-nil pointer to non-zero-size memory is a namespace. Its registry is
// created on first use and released when the pointee is garbage collected.
// Types embedding Host carry their registry explicitly, and a *Listeners is
// its own namespace. Dispatcher.Global returns the dispatcher's registry.
//
// # Domains
//
// A listener may be bound to a domain.Domain. It then always runs on that
// domain's goroutine; Emit hands the call over and waits for it. Listeners
// returning a domain.Future are awaited before the next listener runs.
//
// # Lifecycles
//
// Listeners registered with a context carrying an active Lifecycle are
// tagged with it and can be removed as a batch with ForLifecycle.
package emitter
