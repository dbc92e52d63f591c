// Package state provides a small observable value container.
package state

import (
	"sort"
	"sync"
)

// Listener receives each committed value together with its version.
type Listener[T any] func(value T, version uint64)

// Store holds one value. Mutations are serialized and listeners are called
// in mutation order, so a listener never observes a value older than the
// latest completed mutation. Listeners must not mutate the same store.
type Store[T any] struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	value     T
	version   uint64
	nextID    int
	listeners map[int]Listener[T]
}

// New creates a store holding initial at version 0.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value:     initial,
		listeners: make(map[int]Listener[T]),
	}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version returns the number of committed mutations.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update is the single mutation entry point. fn receives the current value
// and returns the next one; it must not call back into the store.
func (s *Store[T]) Update(fn func(T) T) T {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := fn(s.value)
	s.value = next
	s.version++
	version := s.version
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next, version)
	}
	return next
}

// Subscribe registers l for future mutations and returns a function that
// removes it.
func (s *Store[T]) Subscribe(l Listener[T]) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// snapshotListeners returns listeners in subscription order. Caller holds mu.
func (s *Store[T]) snapshotListeners() []Listener[T] {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener[T], len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}
