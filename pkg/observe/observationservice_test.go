package observe_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-presence/pkg/observe"
	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingProcessor records every classified result it receives.
type collectingProcessor struct {
	mu       sync.Mutex
	received []presence.Presence[string]
	err      error
}

func newCollectingProcessor() *collectingProcessor {
	return &collectingProcessor{}
}

func (p *collectingProcessor) process(_ context.Context, _ observe.FetchResult[string], pr presence.Presence[string]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, pr)
	return p.err
}

func (p *collectingProcessor) snapshot() []presence.Presence[string] {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]presence.Presence[string], len(p.received))
	copy(out, p.received)
	return out
}

func (p *collectingProcessor) waitFor(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.received) >= n
	}, time.Second, 10*time.Millisecond, "processor did not receive %d results in time", n)
}

func found(key, value string) observe.FetchResult[string] {
	return observe.FetchResult[string]{Key: key, Value: value, Found: true, FetchedAt: time.Now().UTC()}
}

func notFound(key string) observe.FetchResult[string] {
	return observe.FetchResult[string]{Key: key, Found: false, FetchedAt: time.Now().UTC()}
}

func TestNewObservationService_Validation(t *testing.T) {
	consumer := NewMockResultConsumer[string](1)
	processor := newCollectingProcessor()

	_, err := observe.NewObservationService[string](nil, processor.process, zerolog.Nop())
	require.Error(t, err)

	_, err = observe.NewObservationService[string](consumer, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestObservationService_Lifecycle(t *testing.T) {
	// Arrange
	consumer := NewMockResultConsumer[string](10)
	t.Cleanup(consumer.Close)
	processor := newCollectingProcessor()

	service, err := observe.NewObservationService[string](consumer, processor.process, zerolog.Nop())
	require.NoError(t, err)

	serviceCtx, serviceCancel := context.WithCancel(context.Background())
	defer serviceCancel()

	// Act
	require.NoError(t, service.Start(serviceCtx))

	// Assert
	assert.Equal(t, 1, consumer.GetStartCount())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, service.Stop(stopCtx))
	assert.Equal(t, 1, consumer.GetStopCount())
}

func TestObservationService_StartFailsWhenConsumerFails(t *testing.T) {
	consumer := NewMockResultConsumer[string](1)
	consumer.SetStartError(errors.New("no connection"))
	processor := newCollectingProcessor()

	service, err := observe.NewObservationService[string](consumer, processor.process, zerolog.Nop())
	require.NoError(t, err)

	err = service.Start(context.Background())
	require.Error(t, err)
}

func TestObservationService_ClassifiesInOrder(t *testing.T) {
	// Arrange
	consumer := NewMockResultConsumer[string](10)
	processor := newCollectingProcessor()

	service, err := observe.NewObservationService[string](consumer, processor.process, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, service.Start(ctx))

	// Act: the canonical disappearance-and-return sequence.
	consumer.Push(notFound("player-1"))
	consumer.Push(found("player-1", "Arthur"))
	consumer.Push(found("player-1", "Arthur"))
	consumer.Push(notFound("player-1"))
	consumer.Push(notFound("player-1"))
	consumer.Push(found("player-1", "Barbara"))

	// Assert
	processor.waitFor(t, 6)
	want := []presence.Presence[string]{
		presence.NewMissing[string](),
		presence.NewExisting("Arthur"),
		presence.NewExisting("Arthur"),
		presence.NewGone("Arthur"),
		presence.NewGone("Arthur"),
		presence.NewExisting("Barbara"),
	}
	got := processor.snapshot()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, presence.Equal(want[i], got[i]), "position %d", i)
	}

	require.NoError(t, service.Stop(ctx))
}

func TestObservationService_LastTracksOutput(t *testing.T) {
	consumer := NewMockResultConsumer[string](10)
	processor := newCollectingProcessor()

	service, err := observe.NewObservationService[string](consumer, processor.process, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, presence.Missing, service.Last().Kind())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, service.Start(ctx))

	consumer.Push(found("player-1", "Arthur"))
	processor.waitFor(t, 1)

	assert.True(t, presence.Equal(presence.NewExisting("Arthur"), service.Last()))

	consumer.Push(notFound("player-1"))
	processor.waitFor(t, 2)

	assert.True(t, presence.Equal(presence.NewGone("Arthur"), service.Last()))

	require.NoError(t, service.Stop(ctx))
}

func TestObservationService_ProcessorErrorDoesNotStopStream(t *testing.T) {
	// Arrange
	consumer := NewMockResultConsumer[string](10)
	var calls atomic.Int32
	processor := func(_ context.Context, _ observe.FetchResult[string], _ presence.Presence[string]) error {
		calls.Add(1)
		return errors.New("downstream unavailable")
	}

	service, err := observe.NewObservationService[string](consumer, processor, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, service.Start(ctx))

	// Act
	consumer.Push(found("player-1", "Arthur"))
	consumer.Push(notFound("player-1"))

	// Assert: both results still reach the processor.
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
	// The fold advanced despite the errors.
	assert.True(t, presence.Equal(presence.NewGone("Arthur"), service.Last()))

	require.NoError(t, service.Stop(ctx))
}
