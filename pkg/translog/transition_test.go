package translog_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/illmade-knight/go-presence/pkg/observe"
	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/illmade-knight/go-presence/pkg/translog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestNewTransition_Existing(t *testing.T) {
	observed := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	result := observe.FetchResult[payload]{Key: "player-1", Value: payload{Name: "Arthur"}, Found: true, FetchedAt: observed}

	tr, err := translog.NewTransition(result, presence.NewExisting(payload{Name: "Arthur"}))
	require.NoError(t, err)

	assert.Equal(t, "player-1", tr.Key)
	assert.Equal(t, "existing", tr.State)
	assert.Equal(t, observed, tr.ObservedAt)

	var got payload
	require.NoError(t, json.Unmarshal(tr.Payload, &got))
	assert.Equal(t, "Arthur", got.Name)
}

func TestNewTransition_MissingHasNoPayload(t *testing.T) {
	result := observe.FetchResult[payload]{Key: "player-1", FetchedAt: time.Now().UTC()}

	tr, err := translog.NewTransition(result, presence.NewMissing[payload]())
	require.NoError(t, err)

	assert.Equal(t, "missing", tr.State)
	assert.Empty(t, tr.Payload)
}

func TestNewTransition_GoneRetainsLastPayload(t *testing.T) {
	result := observe.FetchResult[payload]{Key: "player-1", FetchedAt: time.Now().UTC()}

	tr, err := translog.NewTransition(result, presence.NewGone(payload{Name: "Arthur"}))
	require.NoError(t, err)

	assert.Equal(t, "gone", tr.State)
	var got payload
	require.NoError(t, json.Unmarshal(tr.Payload, &got))
	assert.Equal(t, "Arthur", got.Name)
}

func TestTransition_GetBatchKey(t *testing.T) {
	tr := &translog.Transition{
		Key:        "player-1",
		State:      "gone",
		ObservedAt: time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "2026/08/29/player-1", tr.GetBatchKey())
}
