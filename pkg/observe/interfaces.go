package observe

import (
	"context"
	"time"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// ====================================================================================
// This file defines the core interfaces and function types for building an
// observation pipeline. It outlines the contracts for consuming fetch
// results, classifying them into presences, and processing the outputs.
// ====================================================================================

// --- Stage 1: Consumer ---

// FetchResult is one input event: the outcome of asking the upstream source
// for the current state of a record. Found is false when the source answered
// authoritatively that the record does not exist.
type FetchResult[T any] struct {
	// Key identifies the observed record.
	Key string
	// Value is the fetched state; meaningful only when Found is true.
	Value T
	// Found reports whether the record existed at fetch time.
	Found bool
	// FetchedAt is the time the result was produced.
	FetchedAt time.Time
}

// ResultConsumer defines the interface for a source of fetch results
// (e.g., a poller, a change-notification stream). It is responsible for
// producing results and handing them off to the pipeline in arrival order.
type ResultConsumer[T any] interface {
	// Results returns a read-only channel from which the pipeline receives
	// fetch results.
	Results() <-chan FetchResult[T]
	// Start begins producing results.
	Start(ctx context.Context) error
	// Stop gracefully ceases production and waits for background tasks to finish.
	Stop(ctx context.Context) error
	// Done returns a channel that is closed when the consumer has completely shut down.
	Done() <-chan struct{}
}

// --- Stage 2: Processor ---

// PresenceProcessor defines the contract for an endpoint that handles one
// classified result at a time. The presence is the fold of every result
// delivered so far, so implementations are invoked in input order. An error
// returned from the processor is logged by the service; it does not stop
// the stream.
type PresenceProcessor[T any] func(ctx context.Context, result FetchResult[T], p presence.Presence[T]) error
