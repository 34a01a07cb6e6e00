package translog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/go-presence/pkg/translog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink records every batch it is asked to insert.
type mockSink struct {
	mu        sync.Mutex
	batches   [][]*translog.Transition
	insertErr error
	closed    bool
}

func (m *mockSink) InsertBatch(_ context.Context, items []*translog.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	batch := make([]*translog.Transition, len(items))
	copy(batch, items)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSink) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockSink) totalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func transition(key string) *translog.Transition {
	return &translog.Transition{Key: key, State: "existing", ObservedAt: time.Now().UTC()}
}

func TestBatcher_FlushesFullBatch(t *testing.T) {
	// Arrange
	sink := &mockSink{}
	batcher := translog.NewBatcher(translog.BatcherConfig{
		BatchSize:     2,
		FlushInterval: time.Hour, // Only size should trigger the flush.
	}, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batcher.Start(ctx)

	// Act
	batcher.Input() <- transition("a")
	batcher.Input() <- transition("b")

	// Assert
	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, sink.totalItems())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, batcher.Stop(stopCtx))
}

func TestBatcher_FlushesPartialBatchOnInterval(t *testing.T) {
	sink := &mockSink{}
	batcher := translog.NewBatcher(translog.BatcherConfig{
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
	}, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batcher.Start(ctx)

	batcher.Input() <- transition("a")

	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sink.totalItems())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, batcher.Stop(stopCtx))
}

func TestBatcher_FinalFlushOnStop(t *testing.T) {
	sink := &mockSink{}
	batcher := translog.NewBatcher(translog.BatcherConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batcher.Start(ctx)

	batcher.Input() <- transition("a")
	batcher.Input() <- transition("b")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, batcher.Stop(stopCtx))

	assert.Equal(t, 1, sink.batchCount())
	assert.Equal(t, 2, sink.totalItems())
	assert.True(t, sink.closed, "sink should be closed on Stop")
}

func TestBatcher_InsertErrorDoesNotStopWorker(t *testing.T) {
	// Arrange: the sink fails for the first batch, then recovers.
	sink := &mockSink{insertErr: errors.New("table unavailable")}
	batcher := translog.NewBatcher(translog.BatcherConfig{
		BatchSize:     1,
		FlushInterval: time.Hour,
	}, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batcher.Start(ctx)

	// Act
	batcher.Input() <- transition("dropped")
	time.Sleep(50 * time.Millisecond)

	sink.mu.Lock()
	sink.insertErr = nil
	sink.mu.Unlock()

	batcher.Input() <- transition("recorded")

	// Assert: the second batch lands despite the first failing.
	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, batcher.Stop(stopCtx))
}
