package translog

import (
	"context"
	"fmt"

	"github.com/illmade-knight/go-presence/pkg/observe"
	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
)

// NewRecordingProcessor returns a PresenceProcessor that flattens each
// classified result into a Transition and hands it to the batcher. Combine
// it with observe.WithPresenceChange to record only actual transitions
// rather than every poll.
//
// Shutdown order matters: stop the ObservationService driving this
// processor before stopping the batcher. Batcher.Stop closes the input
// channel, and a processor invocation after that would panic on send.
func NewRecordingProcessor[T any](batcher *Batcher, logger zerolog.Logger) (observe.PresenceProcessor[T], error) {
	if batcher == nil {
		return nil, fmt.Errorf("batcher cannot be nil")
	}

	recordLogger := logger.With().Str("component", "RecordingProcessor").Logger()

	return func(ctx context.Context, result observe.FetchResult[T], p presence.Presence[T]) error {
		t, err := NewTransition(result, p)
		if err != nil {
			return err
		}

		select {
		case batcher.Input() <- t:
			recordLogger.Debug().Str("key", t.Key).Str("state", t.State).Msg("Transition queued for recording.")
			return nil
		case <-ctx.Done():
			return fmt.Errorf("shutdown while queueing transition for key %s: %w", t.Key, ctx.Err())
		}
	}, nil
}
