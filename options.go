package emitter

import (
	"github.com/dshills/emitter/domain"
	"github.com/dshills/emitter/scope"
)

// ListenerOption configures a registration.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	scope scope.Path
	flags Flag
	dom   *domain.Domain
}

func newListenerConfig(opts []ListenerOption) listenerConfig {
	cfg := listenerConfig{scope: scope.Root}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// InScope registers the listener under scope s.
func InScope(s string) ListenerOption {
	return func(c *listenerConfig) {
		c.scope = scope.Parse(s)
	}
}

// Once removes the listener after the first emission that claims it.
func Once() ListenerOption {
	return func(c *listenerConfig) {
		c.flags |= FlagOnce
	}
}

// RaiseOnError makes a failure of the listener that no recovery listener
// handles fail the emission.
func RaiseOnError() ListenerOption {
	return func(c *listenerConfig) {
		c.flags |= FlagRaiseOnError
	}
}

// WithFlags adds raw flags.
func WithFlags(f Flag) ListenerOption {
	return func(c *listenerConfig) {
		c.flags |= f
	}
}

// OnDomain binds the listener to d. It always runs there, whichever
// goroutine or domain emits.
func OnDomain(d *domain.Domain) ListenerOption {
	return func(c *listenerConfig) {
		c.dom = d
	}
}
