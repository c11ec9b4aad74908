// Package registry provides the thread-safe shadow tables that track
// graphics resources by their externally-assigned opaque handles.
//
// Each resource domain (contexts, drawables, pixmaps, ...) owns an
// independent Table, so unrelated domains never contend on the same lock.
// Keys are never generated here: they come from the intercepted API and
// are process-unique by contract.
package registry

import (
	"errors"
	"sync"
)

// ErrDuplicateHandle is returned by Add when the key is already present.
// A duplicate add is programmer misuse in the hook layer; callers are
// expected to escalate it through the runtime's fatal path.
var ErrDuplicateHandle = errors.New("registry: handle already present")

// Table is a shadow-state map serialized by its own mutex. The zero
// value is ready to use; the underlying map is allocated lazily on
// first Add and released again by Clear, so IsAllocated can distinguish
// a table that was never touched (or is mid-teardown) from one that is
// merely empty.
type Table[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

// Add inserts a shadow for key. It returns ErrDuplicateHandle if a live
// entry already exists for the key.
func (t *Table[K, V]) Add(key K, shadow V) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[K]V)
	}
	if _, ok := t.entries[key]; ok {
		return ErrDuplicateHandle
	}
	t.entries[key] = shadow
	return nil
}

// Lookup returns the shadow for key and whether it is present.
// It never fails: an absent key simply reports false.
func (t *Table[K, V]) Lookup(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[key]
	return v, ok
}

// Remove drops the entry for key. Removing an absent key is a no-op:
// deletions may legitimately race with the table having already dropped
// the entry via Clear.
func (t *Table[K, V]) Remove(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// IsAllocated reports whether the table currently holds an allocated
// map. Shutdown code uses this to avoid resurrecting a table it is in
// the process of tearing down; destruction across independent tables
// has no defined relative order.
func (t *Table[K, V]) IsAllocated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries != nil
}

// Clear drops all entries and releases the underlying map. Used only
// during shutdown.
func (t *Table[K, V]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Range calls fn for every live entry while holding the table lock.
// fn must not call back into the table. Iteration order is unspecified.
func (t *Table[K, V]) Range(fn func(key K, shadow V) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.entries {
		if !fn(k, v) {
			return
		}
	}
}
