package observe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/illmade-knight/go-presence/pkg/source"
	"github.com/rs/zerolog"
)

// PollingConsumerConfig holds configuration for a PollingConsumer.
type PollingConsumerConfig struct {
	// Key is the record to observe.
	Key string
	// Interval is the time between fetches.
	Interval time.Duration
	// BufferSize is the capacity of the results channel.
	BufferSize int
}

// LoadDefaultPollingConsumerConfig returns a config for one key with
// sensible defaults.
func LoadDefaultPollingConsumerConfig(key string) *PollingConsumerConfig {
	return &PollingConsumerConfig{
		Key:        key,
		Interval:   time.Second,
		BufferSize: 16,
	}
}

// PollingConsumer drives a RecordSource for a single key on a fixed
// interval and emits one FetchResult per successful poll. A failed fetch is
// logged and suppressed: no result is emitted, so the previous presence
// holds until the source can answer again.
type PollingConsumer[V any] struct {
	cfg         PollingConsumerConfig
	src         source.RecordSource[string, V]
	logger      zerolog.Logger
	outputChan  chan FetchResult[V]
	stopOnce    sync.Once
	cancelPolls context.CancelFunc
	wg          sync.WaitGroup
	doneChan    chan struct{}
}

// NewPollingConsumer creates a new PollingConsumer.
func NewPollingConsumer[V any](
	cfg *PollingConsumerConfig,
	src source.RecordSource[string, V],
	logger zerolog.Logger,
) (*PollingConsumer[V], error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("record source cannot be nil")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	return &PollingConsumer[V]{
		cfg:        *cfg,
		src:        src,
		logger:     logger.With().Str("component", "PollingConsumer").Str("key", cfg.Key).Logger(),
		outputChan: make(chan FetchResult[V], cfg.BufferSize),
		doneChan:   make(chan struct{}),
	}, nil
}

// Results returns the channel of fetch results.
func (c *PollingConsumer[V]) Results() <-chan FetchResult[V] {
	return c.outputChan
}

// Start begins polling. The first fetch happens immediately rather than one
// interval in.
func (c *PollingConsumer[V]) Start(ctx context.Context) error {
	c.logger.Info().Dur("interval", c.cfg.Interval).Msg("Starting record polling...")
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancelPolls = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.outputChan)
		defer close(c.doneChan)
		defer c.logger.Info().Msg("Polling goroutine stopped.")

		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		c.poll(pollCtx)
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				c.poll(pollCtx)
			}
		}
	}()
	return nil
}

// poll performs one fetch and emits the result, unless the fetch failed.
func (c *PollingConsumer[V]) poll(ctx context.Context) {
	value, found, err := c.src.Fetch(ctx, c.cfg.Key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Msg("Fetch failed; suppressing this poll.")
		return
	}

	result := FetchResult[V]{
		Key:       c.cfg.Key,
		Value:     value,
		Found:     found,
		FetchedAt: time.Now().UTC(),
	}

	select {
	case c.outputChan <- result:
	case <-ctx.Done():
	}
}

// Stop halts polling and waits for the polling goroutine to exit, respecting
// the context's deadline.
func (c *PollingConsumer[V]) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping record polling...")
		if c.cancelPolls != nil {
			c.cancelPolls()
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
func (c *PollingConsumer[V]) Done() <-chan struct{} {
	return c.doneChan
}
