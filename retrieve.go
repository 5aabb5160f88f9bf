package emitter

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/dshills/emitter/scope"
)

// Retrieve returns the listeners of ns registered for type E, in dispatch
// order of their scopes (most specific first, then registration order).
// With a non-empty s only listeners whose scope is equal to or less specific
// than s are returned.
func Retrieve[E any, N any](d *Dispatcher, ns *N, s string) ([]*Listener, error) {
	t := reflect.TypeFor[E]()
	if err := checkType(t); err != nil {
		return nil, err
	}
	ls, err := resolveNamespace(d, ns)
	if err != nil {
		return nil, err
	}
	return ls.retrieve(t, s), nil
}

func (r *Listeners) retrieve(t reflect.Type, s string) []*Listener {
	limit := scope.Parse(s)

	st := r.store
	st.mu.RLock()
	defer st.mu.RUnlock()

	var paths []scope.Path
	for key, types := range st.scopes {
		if len(types[t]) == 0 {
			continue
		}
		p := scope.Parse(key)
		if s != "" && !limit.AtLeastAsSpecific(p) {
			continue
		}
		paths = append(paths, p)
	}
	sortBySpecificity(paths)

	var out []*Listener
	for _, p := range paths {
		for _, e := range st.scopes[p.Key()][t] {
			out = append(out, e.Listener)
		}
	}
	return out
}

// sortBySpecificity orders paths longest first, then lexically.
func sortBySpecificity(paths []scope.Path) {
	slices.SortFunc(paths, func(a, b scope.Path) int {
		if c := cmp.Compare(b.Len(), a.Len()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
}
