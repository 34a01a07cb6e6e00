package translog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TransitionSink is a generic interface for writing a batch of transitions
// to a data store. It abstracts the destination (BigQuery, Cloud Storage,
// Pub/Sub), making the batching worker modular and testable.
type TransitionSink interface {
	// InsertBatch writes a slice of transitions to the data store.
	InsertBatch(ctx context.Context, items []*Transition) error
	// Close handles any necessary cleanup of the sink's resources.
	Close() error
}

// BatcherConfig holds configuration for the Batcher.
type BatcherConfig struct {
	BatchSize     int
	FlushInterval time.Duration // How often to flush a partial batch.
	InsertTimeout time.Duration // The timeout for a single flush operation.
}

// Batcher collects transitions and flushes them to a TransitionSink when a
// batch fills or the flush interval elapses. A failed flush is logged and
// the batch dropped; the presence stream itself is never held back by a
// slow sink.
type Batcher struct {
	config    BatcherConfig
	sink      TransitionSink
	logger    zerolog.Logger
	inputChan chan *Transition
	wg        sync.WaitGroup
}

// NewBatcher creates a new Batcher over the given sink.
func NewBatcher(config BatcherConfig, sink TransitionSink, logger zerolog.Logger) *Batcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = time.Minute
	}
	if config.InsertTimeout <= 0 {
		config.InsertTimeout = 30 * time.Second
	}
	return &Batcher{
		config:    config,
		sink:      sink,
		logger:    logger.With().Str("component", "TransitionBatcher").Logger(),
		inputChan: make(chan *Transition, config.BatchSize*2),
	}
}

// Start begins the batching worker.
func (b *Batcher) Start(ctx context.Context) {
	b.logger.Info().
		Int("batch_size", b.config.BatchSize).
		Dur("flush_interval", b.config.FlushInterval).
		Msg("Starting transition batcher...")
	b.wg.Add(1)
	go b.worker(ctx)
}

// Stop gracefully shuts down the Batcher, flushing any remaining
// transitions and closing the sink. It closes the input channel, so all
// producers (such as a recording processor's pipeline) must be stopped
// before Stop is called; a send after Stop panics.
func (b *Batcher) Stop(ctx context.Context) error {
	b.logger.Info().Msg("Stopping transition batcher...")
	close(b.inputChan)

	// Wait for the worker to finish, but respect the timeout.
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info().Msg("Transition batcher worker stopped gracefully.")
	case <-ctx.Done():
		b.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for transition batcher worker to stop.")
		return ctx.Err()
	}

	if err := b.sink.Close(); err != nil {
		b.logger.Error().Err(err).Msg("Error closing underlying transition sink")
	}
	b.logger.Info().Msg("Transition batcher stopped.")
	return nil
}

// Input returns the channel to which transitions should be sent.
func (b *Batcher) Input() chan<- *Transition {
	return b.inputChan
}

// worker is the core logic that collects transitions into a batch and flushes it.
func (b *Batcher) worker(ctx context.Context) {
	defer b.wg.Done()
	batch := make([]*Transition, 0, b.config.BatchSize)
	ticker := time.NewTicker(b.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The service is shutting down, flush any remaining items.
			b.flush(context.Background(), batch) // Use a background context for the final flush.
			return

		case t, ok := <-b.inputChan:
			if !ok {
				// The input channel was closed, flush remaining items and exit.
				b.flush(ctx, batch)
				return
			}
			batch = append(batch, t)
			if len(batch) >= b.config.BatchSize {
				b.flush(ctx, batch)
				batch = make([]*Transition, 0, b.config.BatchSize)
				// Reset the ticker to prevent an immediate, unnecessary flush.
				ticker.Reset(b.config.FlushInterval)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				b.flush(ctx, batch)
				batch = make([]*Transition, 0, b.config.BatchSize)
			}
		}
	}
}

// flush sends the current batch to the sink.
func (b *Batcher) flush(ctx context.Context, batch []*Transition) {
	if len(batch) == 0 {
		return
	}

	insertCtx, cancel := context.WithTimeout(ctx, b.config.InsertTimeout)
	defer cancel()

	if err := b.sink.InsertBatch(insertCtx, batch); err != nil {
		b.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to flush transition batch.")
		return
	}
	b.logger.Info().Int("batch_size", len(batch)).Msg("Successfully flushed transition batch.")
}
