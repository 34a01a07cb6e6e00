package observe

import (
	"context"
	"fmt"
	"sync"

	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
)

// ObservationService orchestrates a pipeline that consumes fetch results,
// folds them through a presence tracker, and hands each classified result
// to a processor function.
//
// Unlike a fan-out worker pool, the service runs exactly one worker: the
// presence transition folds over history, so results must be classified in
// arrival order.
type ObservationService[T any] struct {
	consumer  ResultConsumer[T]
	processor PresenceProcessor[T]
	tracker   *presence.Tracker[T]
	logger    zerolog.Logger
	wg        sync.WaitGroup

	mu   sync.RWMutex
	last presence.Presence[T]
}

// NewObservationService creates a new ObservationService.
func NewObservationService[T any](
	consumer ResultConsumer[T],
	processor PresenceProcessor[T],
	logger zerolog.Logger,
) (*ObservationService[T], error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}

	return &ObservationService[T]{
		consumer:  consumer,
		processor: processor,
		tracker:   presence.NewTracker[T](),
		logger:    logger.With().Str("service", "ObservationService").Logger(),
		last:      presence.NewMissing[T](),
	}, nil
}

// Start begins the service operation. It starts the consumer and then spawns
// the single ordered worker.
func (s *ObservationService[T]) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting observation service...")

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start result consumer: %w", err)
	}
	s.logger.Info().Msg("Result consumer started.")

	s.wg.Add(1)
	go s.worker(ctx)

	s.logger.Info().Msg("Observation service started successfully.")
	return nil
}

// Stop gracefully shuts down the entire service in the correct order.
func (s *ObservationService[T]) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping observation service...")

	// Stop the consumer first to prevent new results from arriving.
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}

	// Wait for the worker to finish classifying in-flight results.
	workerDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(workerDone)
	}()

	select {
	case <-workerDone:
		s.logger.Info().Msg("Observation worker completed gracefully.")
	case <-ctx.Done():
		s.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for observation worker to finish.")
		return ctx.Err()
	}

	s.logger.Info().Msg("Observation service stopped.")
	return nil
}

// Last returns the most recently produced presence, or Missing before any
// result has been classified. It is safe for concurrent use.
func (s *ObservationService[T]) Last() presence.Presence[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// worker is the single ordered processing loop.
func (s *ObservationService[T]) worker(ctx context.Context) {
	defer s.wg.Done()
	s.logger.Debug().Msg("Observation worker started.")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Observation worker shutting down due to context cancellation.")
			return
		case result, ok := <-s.consumer.Results():
			if !ok {
				s.logger.Info().Msg("Consumer channel closed, worker exiting.")
				return
			}
			s.classifyResult(ctx, result)
		}
	}
}

// classifyResult folds one fetch result through the tracker and hands the
// output to the processor.
func (s *ObservationService[T]) classifyResult(ctx context.Context, result FetchResult[T]) {
	p := s.tracker.Observe(result.Value, result.Found)

	s.mu.Lock()
	s.last = p
	s.mu.Unlock()

	s.logger.Debug().Str("key", result.Key).Stringer("presence", p.Kind()).Msg("Result classified.")

	if err := s.processor(ctx, result, p); err != nil {
		// The transition itself cannot fail; a processor failure is a
		// downstream concern and must not stall the ordered stream.
		s.logger.Error().Err(err).Str("key", result.Key).Msg("Processor failed to handle classified result.")
	}
}
