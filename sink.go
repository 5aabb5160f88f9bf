package emitter

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives listener failures that were neither recovered by a
// recovery listener nor raised out of Emit.
type Sink interface {
	Report(ctx context.Context, err *ListenerError)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, err *ListenerError)

// Report implements Sink.
func (f SinkFunc) Report(ctx context.Context, err *ListenerError) {
	f(ctx, err)
}

type logSink struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	level  zerolog.Level
}

// LogSink returns a sink writing each failure to logger at level.
func LogSink(logger zerolog.Logger, level zerolog.Level) Sink {
	return &logSink{logger: logger, level: level}
}

func (s *logSink) set(logger zerolog.Logger, level zerolog.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
	s.level = level
}

// Report implements Sink.
func (s *logSink) Report(_ context.Context, err *ListenerError) {
	s.mu.RLock()
	logger, level := s.logger, s.level
	s.mu.RUnlock()

	e := logger.WithLevel(level).
		Err(err.Err).
		Str("listener", err.Listener.String()).
		Str("event", typeName(err.Event))
	if err.Recovery != nil {
		e = e.AnErr("recovery", err.Recovery)
	}
	e.Msg("unhandled listener failure")
}
