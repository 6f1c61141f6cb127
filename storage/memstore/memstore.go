// Package memstore provides an in-memory BlobStore with a capacity cap.
// It mirrors the semantics of a browser localStorage medium and doubles
// as the test backend for every layer above it.
package memstore

import (
	"fmt"
	"sync"

	"github.com/poiesic/dossier/storage"
)

const eventBuffer = 16

// Store is a capacity-capped, insertion-ordered, in-memory key/value store.
type Store struct {
	mu       sync.Mutex
	keys     []string
	items    map[string]string
	capacity int64
	used     int64
	failErr  error
	watchers []chan storage.Event
	closed   bool
}

var _ storage.BlobStore = (*Store)(nil)
var _ storage.Watcher = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the capacity cap in bytes.
// Default is storage.DefaultCapacityBytes.
func WithCapacity(capacity int64) Option {
	return func(s *Store) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		items:    make(map[string]string),
		capacity: storage.DefaultCapacityBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value held under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.items[key]
	return value, ok
}

// Set stores value under key. The write is rejected whole when it would
// push usage past the capacity cap, leaving the previous value intact.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return storage.ErrStorageClosed
	}
	if s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		return err
	}

	old, exists := s.items[key]
	newUsed := s.used + int64(len(value)) - int64(len(old))
	if !exists {
		newUsed += int64(len(key))
	}
	if newUsed > s.capacity {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d bytes in use", storage.ErrCapacityExceeded, s.used, s.capacity)
	}

	s.items[key] = value
	s.used = newUsed
	if !exists {
		s.keys = append(s.keys, key)
	}
	s.emit(storage.Event{Key: key, OldValue: old, NewValue: value})
	s.mu.Unlock()
	return nil
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	s.mu.Lock()

	old, exists := s.items[key]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.items, key)
	s.used -= int64(len(key) + len(old))
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	s.emit(storage.Event{Key: key, OldValue: old})
	s.mu.Unlock()
}

// Clear removes every key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
	s.keys = nil
	s.used = 0
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Key returns the i-th key in insertion order.
func (s *Store) Key(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.keys) {
		return ""
	}
	return s.keys[i]
}

// Watch returns a channel of change events. Slow receivers drop events
// rather than block writers.
func (s *Store) Watch() <-chan storage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan storage.Event, eventBuffer)
	s.watchers = append(s.watchers, ch)
	return ch
}

// Close closes the store and every watch channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	return nil
}

// FailWrites makes every subsequent Set return err until called with nil.
// Test hook for simulating quota rejections and medium outages.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// emit delivers ev to every watcher without blocking. Callers hold s.mu,
// which also orders emission against Close.
func (s *Store) emit(ev storage.Event) {
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
