package emitter

import (
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/emitter/scope"
)

// Entry is a listener registration inside a bucket.
type Entry struct {
	Listener *Listener
	Flags    Flag
	Tag      uuid.UUID
}

// Listeners is a listener registry: scope path -> event type -> ordered
// bucket of entries. The nil type keys the scope-only bucket of a path.
//
// A Listeners value is safe for concurrent use. Every read returns a copy.
// Views created by Lifecycle.Wrap share the buckets of the registry they were
// created from and tag every insert with their lifecycle.
type Listeners struct {
	store *store
	tag   uuid.UUID
}

type store struct {
	mu     sync.RWMutex
	scopes map[string]map[reflect.Type][]Entry

	// ifaces lists interface types that ever had a bucket, in order of first
	// registration. Interface supertypes are tried in this order.
	ifaces []reflect.Type
}

// NewListeners creates an empty registry.
func NewListeners() *Listeners {
	return &Listeners{
		store: &store{scopes: make(map[string]map[reflect.Type][]Entry)},
	}
}

// Tag returns the lifecycle tag applied to inserts through this view, or
// uuid.Nil for a plain registry.
func (r *Listeners) Tag() uuid.UUID {
	return r.tag
}

// Lookup returns a snapshot of the bucket for path and t. A nil t selects
// the scope-only bucket.
func (r *Listeners) Lookup(path scope.Path, t reflect.Type) []Entry {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.scopes[path.Key()][t])
}

// Insert appends l to the bucket for path and t. If l is already in that
// bucket its flags and tag are replaced in place. A nil tag takes the view's
// tag.
func (r *Listeners) Insert(path scope.Path, t reflect.Type, l *Listener, flags Flag, tag uuid.UUID) {
	if tag == uuid.Nil {
		tag = r.tag
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := path.Key()
	types := s.scopes[key]
	if types == nil {
		types = make(map[reflect.Type][]Entry)
		s.scopes[key] = types
	}
	if t != nil && t.Kind() == reflect.Interface && !slices.Contains(s.ifaces, t) {
		s.ifaces = append(s.ifaces, t)
	}

	entry := Entry{Listener: l, Flags: flags, Tag: tag}
	bucket := types[t]
	if i := indexOf(bucket, l); i >= 0 {
		bucket[i] = entry
		return
	}
	types[t] = append(bucket, entry)
}

// Remove deletes l from the bucket for path and t.
func (r *Listeners) Remove(path scope.Path, t reflect.Type, l *Listener) bool {
	return r.RemoveBucket(path, t, func(e Entry) bool {
		return e.Listener == l
	}) > 0
}

// RemoveBucket deletes the entries of one bucket matching pred, or all of
// them when pred is nil. It returns the number removed.
func (r *Listeners) RemoveBucket(path scope.Path, t reflect.Type, pred func(Entry) bool) int {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter(path.Key(), t, pred)
}

// RemoveFunc deletes every entry, in any bucket, for which pred returns true.
// It returns the number removed.
func (r *Listeners) RemoveFunc(pred func(path scope.Path, t reflect.Type, e Entry) bool) int {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, types := range s.scopes {
		path := scope.Parse(key)
		for t := range types {
			removed += s.filter(key, t, func(e Entry) bool {
				return pred(path, t, e)
			})
		}
	}
	return removed
}

// Clear removes every entry and returns the number removed.
func (r *Listeners) Clear() int {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.count()
	clear(s.scopes)
	return n
}

// Len returns the number of entries across all buckets.
func (r *Listeners) Len() int {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.count()
}

// Types returns the distinct event types that have listeners, in no
// particular order. Scope-only buckets are not reported.
func (r *Listeners) Types() []reflect.Type {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[reflect.Type]struct{})
	var out []reflect.Type
	for _, types := range s.scopes {
		for t := range types {
			if _, ok := seen[t]; ok || t == nil {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// filter removes matching entries from one bucket and drops empty buckets.
// Callers hold the write lock.
func (s *store) filter(key string, t reflect.Type, pred func(Entry) bool) int {
	types := s.scopes[key]
	bucket := types[t]
	if len(bucket) == 0 {
		return 0
	}

	kept := bucket[:0]
	for _, e := range bucket {
		if pred == nil || pred(e) {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(bucket) - len(kept)
	clear(bucket[len(kept):])
	s.put(key, t, kept)
	return removed
}

// put stores bucket, deleting it and its scope when empty.
func (s *store) put(key string, t reflect.Type, bucket []Entry) {
	types := s.scopes[key]
	if len(bucket) > 0 {
		types[t] = bucket
		return
	}
	delete(types, t)
	if len(types) == 0 {
		delete(s.scopes, key)
	}
}

func (s *store) count() int {
	n := 0
	for _, types := range s.scopes {
		for _, bucket := range types {
			n += len(bucket)
		}
	}
	return n
}

func indexOf(bucket []Entry, l *Listener) int {
	return slices.IndexFunc(bucket, func(e Entry) bool {
		return e.Listener == l
	})
}
