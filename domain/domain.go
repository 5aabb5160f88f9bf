package domain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is the task queue capacity used when none is configured.
const DefaultQueueSize = 256

// PanicHandler is called when a task submitted to a domain panics.
type PanicHandler func(d *Domain, pe *PanicError)

// Domain is a cooperative execution context backed by a single goroutine.
// Tasks are executed one at a time in submission order.
type Domain struct {
	id   uuid.UUID
	name string

	// Configuration
	queueSize    int
	log          zerolog.Logger
	panicHandler PanicHandler

	// State
	mu      sync.RWMutex // protects queue creation/destruction
	queue   chan task
	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	submitted atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
}

type task struct {
	ctx context.Context
	fn  func(context.Context)
}

// Option configures a Domain.
type Option func(*Domain)

// WithQueueSize sets the task queue capacity.
func WithQueueSize(size int) Option {
	return func(d *Domain) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithLogger sets the logger used for panic reports.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Domain) {
		d.log = log
	}
}

// WithPanicHandler replaces the default panic handler, which logs the panic.
func WithPanicHandler(h PanicHandler) Option {
	return func(d *Domain) {
		if h != nil {
			d.panicHandler = h
		}
	}
}

// New creates a stopped domain. Call Start before handing it work.
func New(name string, opts ...Option) *Domain {
	d := &Domain{
		id:        uuid.New(),
		name:      name,
		queueSize: DefaultQueueSize,
		log:       zerolog.Nop(),
	}
	d.panicHandler = defaultPanicHandler
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("domain", name).Logger()
	return d
}

func defaultPanicHandler(d *Domain, pe *PanicError) {
	d.log.Error().
		Interface("panic", pe.Value).
		Bytes("stack", pe.Stack).
		Msg("task panicked")
}

// ID returns the unique identifier of the domain.
func (d *Domain) ID() uuid.UUID {
	return d.id
}

// Name returns the name given at construction.
func (d *Domain) Name() string {
	return d.name
}

// String implements fmt.Stringer.
func (d *Domain) String() string {
	if d == nil {
		return "<none>"
	}
	return d.name + "#" + d.id.String()[:8]
}

// Start launches the domain goroutine. A stopped domain may be started again.
func (d *Domain) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.queue = make(chan task, d.queueSize)
	d.running.Store(true)

	d.wg.Add(1)
	go d.loop(d.queue)

	d.log.Debug().Msg("domain started")
	return nil
}

// Stop stops accepting work and waits until every queued task has run or ctx
// is done. Calling Stop from a task running on d waits for ctx.
func (d *Domain) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}

	d.running.Store(false)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Debug().Msg("domain stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the domain accepts work.
func (d *Domain) IsRunning() bool {
	return d.running.Load()
}

// Submit hands fn to the domain goroutine. It blocks while the queue is full
// until ctx is done. fn receives ctx extended with the domain (see
// FromContext).
//
// Submitting from a task running on d while the queue is full blocks until
// ctx is done.
func (d *Domain) Submit(ctx context.Context, fn func(context.Context)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running.Load() {
		return ErrNotRunning
	}

	select {
	case d.queue <- task{ctx: ctx, fn: fn}:
		d.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes fn on the domain and waits for its result. When the caller is
// already running on d, fn is called directly. A caller running on another
// domain keeps serving its own queue while it waits.
func (d *Domain) Run(ctx context.Context, fn func(context.Context) error) error {
	caller := FromContext(ctx)
	if caller == d {
		return Execute(func() error { return fn(ctx) })
	}

	f := d.Go(ctx, fn)
	if caller != nil {
		return caller.Await(ctx, f)
	}
	return f.Wait(ctx)
}

// Go runs fn on the domain and returns a future bound to d that resolves with
// fn's result.
func (d *Domain) Go(ctx context.Context, fn func(context.Context) error) *Future {
	f := d.NewFuture()
	err := d.Submit(ctx, func(ctx context.Context) {
		f.Resolve(Execute(func() error { return fn(ctx) }))
	})
	if err != nil {
		f.Resolve(err)
	}
	return f
}

// Await waits for f to complete. When called from a task running on d, the
// tasks queued behind it keep running on the caller's goroutine meanwhile, so
// waiting for work scheduled on d itself does not deadlock.
func (d *Domain) Await(ctx context.Context, f *Future) error {
	if FromContext(ctx) != d {
		return f.Wait(ctx)
	}

	d.mu.RLock()
	queue := d.queue
	d.mu.RUnlock()

	for {
		select {
		case <-f.Done():
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-queue:
			if !ok {
				return f.Wait(ctx)
			}
			d.execute(t)
		}
	}
}

// NewFuture returns a pending future bound to d.
func (d *Domain) NewFuture() *Future {
	f := NewFuture()
	f.dom = d
	return f
}

func (d *Domain) loop(queue <-chan task) {
	defer d.wg.Done()

	for t := range queue {
		d.execute(t)
	}
}

func (d *Domain) execute(t task) {
	defer d.executed.Add(1)

	ctx := WithDomain(t.ctx, d)
	err := Execute(func() error {
		t.fn(ctx)
		return nil
	})

	var pe *PanicError
	if errors.As(err, &pe) {
		d.panicked.Add(1)
		d.panicHandler(d, pe)
	}
}

// Stats reports domain activity counters.
type Stats struct {
	Submitted  uint64
	Executed   uint64
	Panicked   uint64
	QueueDepth int
}

// Stats returns a snapshot of the domain counters.
func (d *Domain) Stats() Stats {
	d.mu.RLock()
	depth := 0
	if d.queue != nil && d.running.Load() {
		depth = len(d.queue)
	}
	d.mu.RUnlock()

	return Stats{
		Submitted:  d.submitted.Load(),
		Executed:   d.executed.Load(),
		Panicked:   d.panicked.Load(),
		QueueDepth: depth,
	}
}
