// Package cache provides the versioned in-memory stores that back each
// UI-facing view: character roster, party directory, party membership,
// inventory, quest log and world state.
//
// A Store is replaced wholesale via [Store.ReplaceAll]; stale records absent
// from the new set are dropped, never merged. Reads observe a replacement as
// soon as it returns — there is no asynchronous propagation. Each store
// carries a monotonic version that advances only when a replacement actually
// changes the visible contents, which lets derived projections skip
// recomputation when their inputs are unchanged.
package cache

import (
	"errors"
	"reflect"
	"slices"
	"sync"
)

// ErrNotFound is returned by [Store.Get] when no record has the given id.
var ErrNotFound = errors.New("cache: record not found")

// Record is anything storable in a [Store]. Key must return a stable,
// non-empty identity.
type Record interface {
	Key() string
}

// Store is a thread-safe, versioned, in-memory record set. The zero value is
// not usable; create instances with [New].
type Store[T Record] struct {
	mu      sync.RWMutex
	byID    map[string]T
	order   []string
	version uint64
}

// New returns an initialised empty [Store].
func New[T Record]() *Store[T] {
	return &Store[T]{byID: make(map[string]T)}
}

// ReplaceAll swaps the entire record set for records, preserving the given
// order for [Store.List]. Records with an empty key are dropped; on duplicate
// keys the last record wins without creating a duplicate entry, so replacing
// with the same set twice is idempotent.
//
// The store version advances only when the visible contents actually change.
func (s *Store[T]) ReplaceAll(records []T) {
	byID := make(map[string]T, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, dup := byID[key]; !dup {
			order = append(order, key)
		}
		byID[key] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if reflect.DeepEqual(s.byID, byID) && slices.Equal(s.order, order) {
		return
	}
	s.byID = byID
	s.order = order
	s.version++
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return r, nil
}

// Has reports whether a record with the given id is present.
func (s *Store[T]) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// List returns all records in the order of the last [Store.ReplaceAll].
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of records currently held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Version returns the store's change counter. Two equal Version values
// bracket a window in which the visible contents did not change.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
