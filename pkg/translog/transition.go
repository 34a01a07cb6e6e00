// Package translog provides durable sinks for presence transitions: batch
// recording to BigQuery, archival to Cloud Storage, and publication to
// Pub/Sub, for audit and analytics of observed records.
package translog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/illmade-knight/go-presence/pkg/observe"
	"github.com/illmade-knight/go-presence/pkg/presence"
)

// Transition is the flat record of one classified fetch result, shaped for
// direct insertion into columnar stores.
type Transition struct {
	// Key identifies the observed record.
	Key string `json:"key" bigquery:"key"`
	// State is the presence kind ("missing", "existing", "gone").
	State string `json:"state" bigquery:"state"`
	// Payload is the JSON encoding of the retained value; empty for missing.
	Payload []byte `json:"payload,omitempty" bigquery:"payload"`
	// ObservedAt is when the fetch result was produced.
	ObservedAt time.Time `json:"observedAt" bigquery:"observed_at"`
}

// GetBatchKey returns the key used for grouping transitions in object
// storage, e.g. "2026/08/29/player-1".
func (t *Transition) GetBatchKey() string {
	return fmt.Sprintf("%d/%02d/%02d/%s",
		t.ObservedAt.Year(), t.ObservedAt.Month(), t.ObservedAt.Day(), t.Key)
}

// NewTransition flattens one classified result into a Transition record.
func NewTransition[T any](result observe.FetchResult[T], p presence.Presence[T]) (*Transition, error) {
	t := &Transition{
		Key:        result.Key,
		State:      p.Kind().String(),
		ObservedAt: result.FetchedAt,
	}
	if value, ok := p.Value(); ok {
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal transition payload for key %s: %w", result.Key, err)
		}
		t.Payload = payload
	}
	return t, nil
}
