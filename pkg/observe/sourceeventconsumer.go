package observe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/illmade-knight/go-presence/pkg/source"
	"github.com/rs/zerolog"
)

// WatchableSource is a record source that can additionally push change
// notifications for a single key. source.InMemorySource satisfies it.
type WatchableSource[V any] interface {
	source.RecordSource[string, V]
	Subscribe(key string, bufferSize int) (<-chan source.Event[V], func())
}

// SourceEventConsumerConfig holds configuration for a SourceEventConsumer.
type SourceEventConsumerConfig struct {
	// Key is the record to observe.
	Key string
	// BufferSize is the capacity of the results channel and the
	// subscription channel.
	BufferSize int
	// PrimeOnStart, when true, fetches the record once on Start and emits
	// the outcome before any change events, so a fresh subscriber learns
	// the current state without waiting for the next mutation.
	PrimeOnStart bool
}

// SourceEventConsumer adapts a WatchableSource's push notifications into a
// ResultConsumer: every change to the observed key becomes one FetchResult,
// delivered in mutation order.
type SourceEventConsumer[V any] struct {
	cfg         SourceEventConsumerConfig
	src         WatchableSource[V]
	logger      zerolog.Logger
	outputChan  chan FetchResult[V]
	stopOnce    sync.Once
	cancelWatch context.CancelFunc
	wg          sync.WaitGroup
	doneChan    chan struct{}
}

// NewSourceEventConsumer creates a new SourceEventConsumer.
func NewSourceEventConsumer[V any](
	cfg *SourceEventConsumerConfig,
	src WatchableSource[V],
	logger zerolog.Logger,
) (*SourceEventConsumer[V], error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("watchable source cannot be nil")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	return &SourceEventConsumer[V]{
		cfg:        *cfg,
		src:        src,
		logger:     logger.With().Str("component", "SourceEventConsumer").Str("key", cfg.Key).Logger(),
		outputChan: make(chan FetchResult[V], cfg.BufferSize),
		doneChan:   make(chan struct{}),
	}, nil
}

// Results returns the channel of fetch results.
func (c *SourceEventConsumer[V]) Results() <-chan FetchResult[V] {
	return c.outputChan
}

// Start subscribes to the source and begins forwarding change events.
func (c *SourceEventConsumer[V]) Start(ctx context.Context) error {
	c.logger.Info().Msg("Starting source event consumption...")
	watchCtx, cancel := context.WithCancel(ctx)
	c.cancelWatch = cancel

	events, unsubscribe := c.src.Subscribe(c.cfg.Key, c.cfg.BufferSize)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.outputChan)
		defer close(c.doneChan)
		defer unsubscribe()
		defer c.logger.Info().Msg("Source event goroutine stopped.")

		if c.cfg.PrimeOnStart {
			c.prime(watchCtx)
		}

		for {
			select {
			case <-watchCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.emit(watchCtx, FetchResult[V]{
					Key:       c.cfg.Key,
					Value:     ev.Value,
					Found:     ev.Found,
					FetchedAt: time.Now().UTC(),
				})
			}
		}
	}()
	return nil
}

// prime fetches the current state once and emits it ahead of any events.
// A failed prime fetch is logged and suppressed, like a failed poll.
func (c *SourceEventConsumer[V]) prime(ctx context.Context) {
	value, found, err := c.src.Fetch(ctx, c.cfg.Key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Prime fetch failed; starting from change events only.")
		return
	}
	c.emit(ctx, FetchResult[V]{
		Key:       c.cfg.Key,
		Value:     value,
		Found:     found,
		FetchedAt: time.Now().UTC(),
	})
}

func (c *SourceEventConsumer[V]) emit(ctx context.Context, result FetchResult[V]) {
	select {
	case c.outputChan <- result:
	case <-ctx.Done():
	}
}

// Stop unsubscribes and waits for the forwarding goroutine to exit,
// respecting the context's deadline.
func (c *SourceEventConsumer[V]) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping source event consumption...")
		if c.cancelWatch != nil {
			c.cancelWatch()
		}

		waitDone := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(waitDone)
		}()

		select {
		case <-waitDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Done returns a channel closed when the consumer has fully shut down.
func (c *SourceEventConsumer[V]) Done() <-chan struct{} {
	return c.doneChan
}
