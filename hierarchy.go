package emitter

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

var (
	runtimeErrorType = reflect.TypeFor[runtime.Error]()
	metaType         = reflect.TypeFor[reflect.Type]()
)

// supertype is an ancestor of an event type. Embedded supertypes carry the
// field index path used to extract their value from the event; interface
// supertypes receive the event itself.
type supertype struct {
	typ   reflect.Type
	index []int
}

// value extracts the supertype value from event. It reports false when a nil
// pointer lies on the embedding path.
func (s supertype) value(event any) (any, bool) {
	if s.index == nil {
		return event, true
	}
	v := reflect.ValueOf(event)
	for _, i := range s.index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	return v.Interface(), true
}

var embeddedCache sync.Map // reflect.Type -> []supertype

// embedded returns the exported, non-interface types embedded in t,
// breadth-first and nearest first. An embedded *T is reported as T and its
// value is dereferenced on extraction.
func embedded(t reflect.Type) []supertype {
	if cached, ok := embeddedCache.Load(t); ok {
		return cached.([]supertype)
	}

	type node struct {
		typ   reflect.Type
		index []int
	}

	var out []supertype
	seen := map[reflect.Type]bool{t: true}
	if t.Kind() == reflect.Pointer {
		seen[t.Elem()] = true
	}
	queue := []node{{typ: t}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		st := n.typ
		if st.Kind() == reflect.Pointer {
			st = st.Elem()
		}
		if st.Kind() != reflect.Struct {
			continue
		}

		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.Anonymous || !f.IsExported() {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Interface || seen[ft] || !listenable(ft) {
				continue
			}
			seen[ft] = true

			index := append(append([]int(nil), n.index...), i)
			out = append(out, supertype{typ: ft, index: index})
			queue = append(queue, node{typ: ft, index: index})
		}
	}

	embeddedCache.Store(t, out)
	return out
}

// listenable reports whether listeners may be registered for t.
func listenable(t reflect.Type) bool {
	return checkType(t) == nil
}

// checkType validates t as a listener key.
func checkType(t reflect.Type) error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: nil type", ErrInvalidEventType)
	case t.Kind() == reflect.Interface && t.NumMethod() == 0:
		return fmt.Errorf("%w: %s matches every value", ErrInvalidEventType, t)
	case t.Implements(metaType):
		return fmt.Errorf("%w: %s is a type descriptor", ErrInvalidEventType, t)
	case t.Implements(runtimeErrorType):
		return fmt.Errorf("%w: %s", ErrFatalEventType, t)
	}
	return nil
}

// isFatal reports whether event must never be dispatched.
func isFatal(event any) bool {
	switch err := event.(type) {
	case runtime.Error:
		return true
	case error:
		return err == context.Canceled || err == context.DeadlineExceeded
	}
	return false
}

// isFatalFailure reports whether a listener failure must end the emission.
// Panics carrying a runtime.Error are unwrapped from *domain.PanicError.
func isFatalFailure(err error) bool {
	var rerr runtime.Error
	if errors.As(err, &rerr) {
		return true
	}
	return isFatal(err)
}

// isError reports whether event belongs to the error category.
func isError(event any) bool {
	_, ok := event.(error)
	return ok
}
