package source

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// watcher is one registered subscription to a key's change events.
type watcher[V any] struct {
	events chan Event[V]
	done   chan struct{}
}

// InMemorySource is a generic, thread-safe, in-memory record source with
// change notification. It is primarily intended for local development and
// testing, and doubles as the reference implementation of a watchable
// source.
type InMemorySource[K comparable, V any] struct {
	mu       sync.RWMutex
	data     map[K]V
	watchers map[K]map[string]*watcher[V]
}

// NewInMemorySource creates an empty in-memory source.
func NewInMemorySource[K comparable, V any]() *InMemorySource[K, V] {
	return &InMemorySource[K, V]{
		data:     make(map[K]V),
		watchers: make(map[K]map[string]*watcher[V]),
	}
}

// Fetch retrieves the current value of a record. It never fails; absence is
// reported through the found flag.
func (s *InMemorySource[K, V]) Fetch(_ context.Context, key K) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok, nil
}

// Put stores a value for a key and notifies subscribers of that key.
func (s *InMemorySource[K, V]) Put(_ context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.notifyLocked(key, Event[V]{Value: value, Found: true})
	return nil
}

// Delete removes a key and notifies subscribers. Deleting an absent key
// still emits a not-found event so subscribers observe the attempt.
func (s *InMemorySource[K, V]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.notifyLocked(key, Event[V]{Found: false})
	return nil
}

// Subscribe registers interest in changes to one key. The returned channel
// receives one Event per Put or Delete of that key, in mutation order. The
// returned cancel function removes the registration and closes the channel;
// it is safe to call more than once.
//
// The channel is buffered. A subscriber that falls more than bufferSize
// events behind blocks the mutating caller rather than losing events, since
// presence transitions are order-dependent; cancelling the subscription
// releases any blocked mutator.
func (s *InMemorySource[K, V]) Subscribe(key K, bufferSize int) (<-chan Event[V], func()) {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	w := &watcher[V]{
		events: make(chan Event[V], bufferSize),
		done:   make(chan struct{}),
	}
	id := uuid.NewString()

	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[string]*watcher[V])
	}
	s.watchers[key][id] = w
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Closing done first unblocks any mutator waiting on a full
			// events channel before we take the lock it is holding.
			close(w.done)
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.watchers[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(s.watchers, key)
				}
			}
			close(w.events)
		})
	}
	return w.events, cancel
}

// notifyLocked fans an event out to every subscriber of key. Callers must
// hold the write lock.
func (s *InMemorySource[K, V]) notifyLocked(key K, ev Event[V]) {
	for _, w := range s.watchers[key] {
		select {
		case w.events <- ev:
		case <-w.done:
			// Subscriber cancelled; drop the event.
		}
	}
}

// Close is a no-op for the in-memory implementation.
func (s *InMemorySource[K, V]) Close() error {
	return nil
}
