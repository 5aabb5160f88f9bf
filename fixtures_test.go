package emitter

import (
	"context"
	"sync"
)

type Base struct {
	ID int
}

type Core struct {
	Tag string
}

type Mid struct {
	Core
}

type Event struct {
	Base
	Data string
}

func (e Event) Name() string { return e.Data }

type Other struct {
	Data string
}

type Deep struct {
	*Mid
	Event
}

type Wrapped struct {
	*Base
	Note string
}

type Node struct {
	*Node
	Label string
}

type Named interface {
	Name() string
}

type fatalError struct{}

func (fatalError) Error() string { return "fatal" }
func (fatalError) RuntimeError() {}

type namespace struct {
	name string
	pad  [2]int64
}

func newNamespace(name string) *namespace {
	return &namespace{name: name}
}

type hosted struct {
	Host
	name string
}

// recorder collects the names of listeners in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func record[E any](r *recorder, name string) HandlerFunc[E] {
	return func(context.Context, E) error {
		r.add(name)
		return nil
	}
}

// sinkRecorder is a Sink keeping every report.
type sinkRecorder struct {
	mu      sync.Mutex
	reports []*ListenerError
}

func (s *sinkRecorder) Report(_ context.Context, err *ListenerError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, err)
}

func (s *sinkRecorder) list() []*ListenerError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ListenerError(nil), s.reports...)
}

func newTestDispatcher() (*Dispatcher, *sinkRecorder) {
	sink := &sinkRecorder{}
	return New(WithSink(sink)), sink
}
