package emitter

import (
	"fmt"
	"sync/atomic"
)

// Stats reports dispatcher activity.
type Stats struct {
	// Emitted counts emissions that passed validation.
	Emitted uint64

	// Handled counts emissions that ran at least one listener.
	Handled uint64

	// Unhandled counts emissions that ran no listener.
	Unhandled uint64

	// ListenersRun counts listener invocations.
	ListenersRun uint64

	// Failures counts listener invocations that failed.
	Failures uint64

	// Recovered counts failures handled by a recovery listener.
	Recovered uint64

	// Reported counts failures handed to the sink.
	Reported uint64

	// Raised counts failures returned from Emit.
	Raised uint64
}

type counters struct {
	emitted      atomic.Uint64
	handled      atomic.Uint64
	unhandled    atomic.Uint64
	listenersRun atomic.Uint64
	failures     atomic.Uint64
	recovered    atomic.Uint64
	reported     atomic.Uint64
	raised       atomic.Uint64
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Emitted:      d.stats.emitted.Load(),
		Handled:      d.stats.handled.Load(),
		Unhandled:    d.stats.unhandled.Load(),
		ListenersRun: d.stats.listenersRun.Load(),
		Failures:     d.stats.failures.Load(),
		Recovered:    d.stats.recovered.Load(),
		Reported:     d.stats.reported.Load(),
		Raised:       d.stats.raised.Load(),
	}
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
