// Package manager holds the per-type collections of a project. Each manager is
// safe for concurrent use so reads can proceed while a sync is appending.
package manager

import "sync"

// Registry is an insertion-ordered, de-duplicating collection keyed by K.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	keyOf func(V) K
	index map[K]int
	items []V
}

// NewRegistry creates a registry that keys its values with keyOf.
func NewRegistry[K comparable, V any](keyOf func(V) K) *Registry[K, V] {
	return &Registry[K, V]{
		keyOf: keyOf,
		index: make(map[K]int),
	}
}

// Add appends v unless a value with the same key is already present.
// It reports whether v was added.
func (r *Registry[K, V]) Add(v V) bool {
	k := r.keyOf(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[k]; exists {
		return false
	}
	r.index[k] = len(r.items)
	r.items = append(r.items, v)
	return true
}

// Get returns the value stored under k.
func (r *Registry[K, V]) Get(k K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return r.items[i], true
}

// Has reports whether a value is stored under k.
func (r *Registry[K, V]) Has(k K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[k]
	return ok
}

// List returns a snapshot of all values in insertion order.
func (r *Registry[K, V]) List() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]V, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of stored values.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
