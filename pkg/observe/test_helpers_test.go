package observe_test

import (
	"context"
	"sync"

	"github.com/illmade-knight/go-presence/pkg/observe"
)

// ====================================================================================
// This file contains mocks for the interfaces defined in this package.
// These mocks are intended for use in unit tests of services that depend on
// the observation pipeline.
// ====================================================================================

// MockResultConsumer is a mock implementation of the ResultConsumer
// interface. It is designed to be used in unit tests to simulate an
// upstream source of fetch results.
type MockResultConsumer[T any] struct {
	resultChan chan observe.FetchResult[T]
	doneChan   chan struct{}
	stopOnce   sync.Once
	closeOnce  sync.Once
	mu         sync.Mutex
	startErr   error
	startCount int
	stopCount  int
}

// NewMockResultConsumer creates a new mock consumer with a buffered channel.
func NewMockResultConsumer[T any](bufferSize int) *MockResultConsumer[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &MockResultConsumer[T]{
		resultChan: make(chan observe.FetchResult[T], bufferSize),
		doneChan:   make(chan struct{}),
	}
}

// Push is a test helper to inject a result into the mock's channel.
func (m *MockResultConsumer[T]) Push(result observe.FetchResult[T]) {
	m.resultChan <- result
}

// Close closes the result channel. Safe to call more than once.
func (m *MockResultConsumer[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.resultChan)
	})
}

func (m *MockResultConsumer[T]) Results() <-chan observe.FetchResult[T] {
	return m.resultChan
}

func (m *MockResultConsumer[T]) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCount++
	return m.startErr
}

func (m *MockResultConsumer[T]) Stop(_ context.Context) error {
	m.mu.Lock()
	m.stopCount++
	m.mu.Unlock()
	m.stopOnce.Do(func() {
		close(m.doneChan)
	})
	m.Close()
	return nil
}

func (m *MockResultConsumer[T]) Done() <-chan struct{} {
	return m.doneChan
}

// SetStartError configures the mock to return an error on Start().
func (m *MockResultConsumer[T]) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// GetStartCount returns the number of times Start() was called.
func (m *MockResultConsumer[T]) GetStartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}

// GetStopCount returns the number of times Stop() was called.
func (m *MockResultConsumer[T]) GetStopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}
