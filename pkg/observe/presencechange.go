package observe

import (
	"context"

	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
)

// WithPresenceChange is a decorator function. It takes an existing
// PresenceProcessor and returns a new one that only invokes the inner
// processor when the presence differs from the previously delivered one.
// Repeated polls of an unchanged record are silently dropped.
//
// The returned processor keeps the previous presence between calls and is
// therefore only safe under the ObservationService's single ordered worker,
// not for concurrent invocation.
func WithPresenceChange[T comparable](
	innerProcessor PresenceProcessor[T],
	logger zerolog.Logger,
) PresenceProcessor[T] {
	var delivered bool
	var lastDelivered presence.Presence[T]

	// Return a new closure that is also a valid PresenceProcessor[T].
	return func(ctx context.Context, result FetchResult[T], p presence.Presence[T]) error {
		if delivered && presence.Equal(lastDelivered, p) {
			logger.Debug().Str("key", result.Key).Msg("Presence unchanged, dropping result.")
			return nil
		}

		if err := innerProcessor(ctx, result, p); err != nil {
			// Do not record the presence as delivered; the next result
			// gets another chance even if it is identical.
			return err
		}
		delivered = true
		lastDelivered = p
		return nil
	}
}
