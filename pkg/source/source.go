// Package source provides record sources: the upstream suppliers of
// "is this record currently retrievable, and with what value" results that
// drive presence tracking.
package source

import (
	"context"
	"io"
)

// RecordSource is the contract for fetching the current state of a single
// identified record. A fetch has three outcomes: the record was found with
// a value, the record was definitively not found, or the fetch itself
// failed. Failures are reported through the error return and must be
// resolved by the caller; a presence tracker only ever sees the found/not
// found outcomes.
type RecordSource[K comparable, V any] interface {
	// Fetch retrieves the current value of the record identified by key.
	// found is false when the source answered authoritatively that no such
	// record exists; err is non-nil only when the source could not answer.
	Fetch(ctx context.Context, key K) (value V, found bool, err error)
	// Closer is included for implementations that manage network connections.
	io.Closer
}

// Event is a single change notification pushed by a watchable source: the
// new value of a record, or its removal when Found is false.
type Event[V any] struct {
	Value V
	Found bool
}
