package emitter

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// Namespace is implemented by values that carry their own listener
// registry. Embed Host to implement it.
type Namespace interface {
	EventListeners() *Listeners
}

// namespaceTable associates namespaces with registries without keeping the
// namespaces alive. An entry is dropped once its namespace is collected.
type namespaceTable struct {
	mu sync.Mutex
	m  map[any]*Listeners // weak.Pointer[N] -> registry
}

func newNamespaceTable() *namespaceTable {
	return &namespaceTable{m: make(map[any]*Listeners)}
}

func (t *namespaceTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// resolveNamespace returns the registry for ns, creating it on first use.
//
// A *Listeners is used as is. A Namespace provides its own registry. Any
// other pointer gets a registry that lives as long as the pointee. Namespaces
// must point to heap memory of non-zero size; a pointer to a package-level
// variable works but its registry is never released.
func resolveNamespace[N any](d *Dispatcher, ns *N) (*Listeners, error) {
	if ns == nil {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidNamespace, reflect.TypeFor[*N]())
	}

	switch v := any(ns).(type) {
	case *Listeners:
		return v, nil
	case Namespace:
		if ls := v.EventListeners(); ls != nil {
			return ls, nil
		}
		return nil, fmt.Errorf("%w: %T has no listener registry", ErrInvalidNamespace, ns)
	}

	if reflect.TypeFor[N]().Size() == 0 {
		return nil, fmt.Errorf("%w: %s has zero size", ErrInvalidNamespace, reflect.TypeFor[N]())
	}

	table := d.namespaces
	key := weak.Make(ns)

	table.mu.Lock()
	defer table.mu.Unlock()

	if ls, ok := table.m[key]; ok {
		return ls, nil
	}
	ls := NewListeners()
	table.m[key] = ls
	runtime.AddCleanup(ns, func(k weak.Pointer[N]) {
		table.mu.Lock()
		delete(table.m, k)
		table.mu.Unlock()
	}, key)
	return ls, nil
}
