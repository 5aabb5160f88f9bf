package emitter

import (
	"fmt"
	"reflect"

	"github.com/dshills/emitter/scope"
)

// RemoveOption narrows a removal.
type RemoveOption func(*removeConfig)

type removeConfig struct {
	typ       reflect.Type
	hasType   bool
	scope     scope.Path
	hasScope  bool
	listener  *Listener
	lifecycle *Lifecycle
}

// ForType limits the removal to listeners of type E.
func ForType[E any]() RemoveOption {
	return func(c *removeConfig) {
		c.typ = reflect.TypeFor[E]()
		c.hasType = true
	}
}

// ForScope limits the removal to the bucket registered at exactly s. Without
// ForType it selects the scope-only listeners of s.
func ForScope(s string) RemoveOption {
	return func(c *removeConfig) {
		c.scope = scope.Parse(s)
		c.hasScope = true
	}
}

// ForListener limits the removal to l.
func ForListener(l *Listener) RemoveOption {
	return func(c *removeConfig) {
		c.listener = l
	}
}

// ForLifecycle limits the removal to listeners tagged by lc or by
// lifecycles nested inside it.
func ForLifecycle(lc *Lifecycle) RemoveOption {
	return func(c *removeConfig) {
		c.lifecycle = lc
	}
}

// Remove deletes listeners from ns and reports whether any were removed.
//
// With no option every listener of ns is removed. ForType or ForScope select
// an event key, ForListener a listener, ForLifecycle a tag set; they combine
// as an intersection:
//
//	emitter.Remove(d, ns)                                   // everything
//	emitter.Remove(d, ns, emitter.ForType[Event]())         // all Event listeners
//	emitter.Remove(d, ns, emitter.ForListener(l))           // l, everywhere
//	emitter.Remove(d, ns, emitter.ForType[Event](), emitter.ForListener(l))
func Remove[N any](d *Dispatcher, ns *N, opts ...RemoveOption) (bool, error) {
	var cfg removeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.hasType {
		if err := checkType(cfg.typ); err != nil {
			return false, err
		}
	} else if cfg.hasScope && cfg.scope.IsRoot() {
		return false, fmt.Errorf("%w: scope-only removal needs a scope", ErrEmptyScope)
	}

	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return false, err
	}

	var removed int
	if cfg.hasScope && cfg.listener == nil && cfg.lifecycle == nil {
		removed = ls.RemoveBucket(cfg.scope, cfg.key(), nil)
	} else {
		removed = ls.RemoveFunc(cfg.match)
	}

	logger := d.Logger()
	logger.Debug().
		Int("removed", removed).
		Str("type", typeString(cfg.typ)).
		Msg("listeners removed")
	return removed > 0, nil
}

// key returns the event key selected by the options: the type, or the
// scope-only key when only a scope was given.
func (c *removeConfig) key() reflect.Type {
	if c.hasType {
		return c.typ
	}
	return nil
}

func (c *removeConfig) match(path scope.Path, t reflect.Type, e Entry) bool {
	if (c.hasType || c.hasScope) && t != c.key() {
		return false
	}
	if c.hasScope && !path.Equal(c.scope) {
		return false
	}
	if c.listener != nil && e.Listener != c.listener {
		return false
	}
	if c.lifecycle != nil && !c.lifecycle.Contains(e.Tag) {
		return false
	}
	return true
}
