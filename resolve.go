package emitter

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/dshills/emitter/scope"
)

// step is one listener invocation of an emission.
type step struct {
	listener *Listener
	flags    Flag
	event    any // the value delivered, narrowed to the bucket's type
}

// checkEvent validates an event before resolution. Fatal events are handled
// by the caller.
func checkEvent(event any, path scope.Path) error {
	if event == nil {
		if path.IsRoot() {
			return ErrNilEvent
		}
		return nil
	}
	t := reflect.TypeOf(event)
	if t.Implements(metaType) {
		return fmt.Errorf("%w: %s is a type descriptor", ErrInvalidEventType, t)
	}
	return nil
}

// resolve computes the ordered listener sequence for event at path.
//
// For every prefix of path, from the full path down to the root, the exact
// type bucket comes first, then the supertype buckets nearest first, then
// (below the root) the scope-only bucket. A listener appears at most once.
// FlagOnce entries are removed while the sequence is built, so of several
// concurrent emissions only the first one to resolve sees them.
func (r *Listeners) resolve(event any, path scope.Path) []step {
	var (
		t      reflect.Type
		supers []supertype
	)
	if event != nil {
		t = reflect.TypeOf(event)
		supers = slices.Clone(embedded(t))
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != nil {
		for _, it := range s.ifaces {
			if t.Implements(it) {
				supers = append(supers, supertype{typ: it})
			}
		}
	}

	var (
		out  []step
		seen = make(map[*Listener]struct{})
	)
	for _, p := range path.Descending() {
		key := p.Key()
		if s.scopes[key] == nil {
			continue
		}
		if t != nil {
			out = s.claim(key, t, event, seen, out)
			for _, st := range supers {
				if v, ok := st.value(event); ok {
					out = s.claim(key, st.typ, v, seen, out)
				}
			}
		}
		if !p.IsRoot() {
			out = s.claim(key, nil, event, seen, out)
		}
	}
	return out
}

// claim appends the bucket's unseen listeners to out and removes its
// FlagOnce entries. Callers hold the write lock.
func (s *store) claim(key string, t reflect.Type, event any, seen map[*Listener]struct{}, out []step) []step {
	types := s.scopes[key]
	if types == nil {
		return out
	}
	bucket := types[t]
	if len(bucket) == 0 {
		return out
	}

	once := false
	for _, e := range bucket {
		if e.Flags.Has(FlagOnce) {
			once = true
		}
		if _, dup := seen[e.Listener]; dup {
			continue
		}
		seen[e.Listener] = struct{}{}
		out = append(out, step{listener: e.Listener, flags: e.Flags, event: event})
	}

	if once {
		s.filter(key, t, func(e Entry) bool {
			return e.Flags.Has(FlagOnce)
		})
	}
	return out
}
