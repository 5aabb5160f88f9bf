package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dshills/emitter/config"
	"github.com/dshills/emitter/domain"
	"github.com/dshills/emitter/internal/logging"
)

var (
	defaultDispatcher *Dispatcher
	defaultOnce       sync.Once
	defaultOptions    []Option
	defaultOptMu      sync.Mutex
)

// Dispatcher resolves and runs listeners. It owns the global registry and
// the table associating plain namespaces with their registries.
//
// The zero value is not usable; create dispatchers with New.
type Dispatcher struct {
	global     *Listeners
	namespaces *namespaceTable

	mu     sync.RWMutex
	cfg    config.Config
	logger zerolog.Logger
	sink   Sink

	stats counters
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithSink replaces the sink receiving unhandled listener failures.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sink = s
		}
	}
}

// WithConfig applies cfg. Options after it may still override the logger
// and the sink.
func WithConfig(cfg config.Config) Option {
	return func(d *Dispatcher) {
		d.cfg = cfg
		d.logger = logging.New(logging.Options{
			Level:     cfg.Log.Level,
			Format:    logging.Format(cfg.Log.Format),
			Component: "emitter",
		})
		d.sink = nil
	}
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		global:     NewListeners(),
		namespaces: newNamespaceTable(),
		cfg:        config.DefaultConfig(),
		logger:     log.Logger.With().Str("component", "emitter").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sink == nil {
		d.sink = LogSink(d.logger, logging.ParseLevel(d.cfg.Dispatch.SinkLevel))
	}
	return d
}

// Configure sets options for the default dispatcher. It has no effect once
// Default has been called.
func Configure(opts ...Option) {
	defaultOptMu.Lock()
	defaultOptions = opts
	defaultOptMu.Unlock()
}

// Default returns the process-wide dispatcher, creating it on first use.
func Default() *Dispatcher {
	defaultOnce.Do(func() {
		defaultOptMu.Lock()
		opts := defaultOptions
		defaultOptMu.Unlock()
		defaultDispatcher = New(opts...)
	})
	return defaultDispatcher
}

// Global returns the dispatcher's own registry, usable as a namespace.
func (d *Dispatcher) Global() *Listeners {
	return d.global
}

// Config returns the active configuration.
func (d *Dispatcher) Config() config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Logger returns the dispatcher logger.
func (d *Dispatcher) Logger() zerolog.Logger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.logger
}

// NewDomain creates a stopped domain using the configured queue size and
// the dispatcher logger.
func (d *Dispatcher) NewDomain(name string, opts ...domain.Option) *domain.Domain {
	cfg := d.Config()
	base := []domain.Option{
		domain.WithQueueSize(cfg.Domain.QueueSize),
		domain.WithLogger(d.Logger()),
	}
	return domain.New(name, append(base, opts...)...)
}

// StopDomains stops every domain in g, bounded by the configured stop
// timeout when it is positive.
func (d *Dispatcher) StopDomains(ctx context.Context, g *domain.Group) error {
	if timeout := d.Config().Domain.StopTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return g.Stop(ctx)
}

// WatchConfig watches path and applies every valid configuration it loads:
// the log level, sink level and trace flag change in place, and a
// config.Reloaded event is emitted into the global registry. It blocks until
// ctx is done.
func (d *Dispatcher) WatchConfig(ctx context.Context, path string, opts ...config.WatchOption) error {
	emitCtx := domain.Detach(ctx)
	w, err := config.NewWatcher(path, func(cfg config.Config, err error) {
		if err != nil {
			logger := d.Logger()
			logger.Warn().Err(err).Str("path", path).Msg("ignoring invalid config")
			return
		}
		d.apply(cfg)
		if _, err := Emit(emitCtx, d, d.global, config.Reloaded{Path: path, Config: cfg}); err != nil {
			logger := d.Logger()
			logger.Warn().Err(err).Msg("config reload emission failed")
		}
	}, append([]config.WatchOption{config.WithWatchLogger(d.Logger())}, opts...)...)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	return w.Run(ctx)
}

func (d *Dispatcher) apply(cfg config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.logger = d.logger.Level(logging.ParseLevel(cfg.Log.Level))
	if ls, ok := d.sink.(*logSink); ok {
		ls.set(d.logger, logging.ParseLevel(cfg.Dispatch.SinkLevel))
	}
}

func (d *Dispatcher) reportSink() Sink {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sink
}
