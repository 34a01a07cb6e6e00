package microservice

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
)

// StatusProvider supplies the latest presence of one observed record.
// observe.ObservationService satisfies it.
type StatusProvider[T any] interface {
	Last() presence.Presence[T]
}

// PresenceStatus is the JSON shape served for one observed record.
type PresenceStatus struct {
	Key    string `json:"key"`
	State  string `json:"state"`
	Exists bool   `json:"exists"`
	// Value is the retained payload for existing and gone records; absent
	// for missing ones.
	Value any `json:"value,omitempty"`
}

// PresenceHandler serves the latest presence of a set of watched records
// over HTTP. Providers can be registered while the handler is serving.
type PresenceHandler[T any] struct {
	logger    zerolog.Logger
	mu        sync.RWMutex
	providers map[string]StatusProvider[T]
}

// NewPresenceHandler creates an empty handler.
func NewPresenceHandler[T any](logger zerolog.Logger) *PresenceHandler[T] {
	return &PresenceHandler[T]{
		logger:    logger.With().Str("component", "PresenceHandler").Logger(),
		providers: make(map[string]StatusProvider[T]),
	}
}

// Watch registers a provider as the authority for one key, replacing any
// previous registration.
func (h *PresenceHandler[T]) Watch(key string, provider StatusProvider[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.providers[key] = provider
}

// Unwatch removes a key's registration.
func (h *PresenceHandler[T]) Unwatch(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.providers, key)
}

// Register mounts the handler on a mux under /presence.
func (h *PresenceHandler[T]) Register(mux *http.ServeMux) {
	mux.HandleFunc("/presence", h.handleGet)
}

// handleGet serves GET /presence?key=<key>.
func (h *PresenceHandler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing 'key' query parameter", http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	provider, ok := h.providers[key]
	h.mu.RUnlock()
	if !ok {
		http.Error(w, "key is not being observed", http.StatusNotFound)
		return
	}

	p := provider.Last()
	status := PresenceStatus{
		Key:    key,
		State:  p.Kind().String(),
		Exists: p.Exists(),
	}
	if value, ok := p.Value(); ok {
		status.Value = value
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to encode presence status.")
	}
}
