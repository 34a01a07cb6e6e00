package microservice_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/illmade-knight/go-presence/pkg/microservice"
	"github.com/illmade-knight/go-presence/pkg/presence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPresenceService_Validation(t *testing.T) {
	_, err := microservice.NewPresenceService[string](nil, zerolog.Nop())
	require.Error(t, err)

	_, err = microservice.NewPresenceService[string](&microservice.BaseConfig{}, zerolog.Nop())
	require.Error(t, err, "a service without an http port cannot listen")
}

func TestPresenceService_ServesHealthzAndPresence(t *testing.T) {
	// Arrange
	cfg := &microservice.BaseConfig{
		HTTPPort:    ":0",
		LogLevel:    "warn",
		ServiceName: "presence-test",
	}
	service, err := microservice.NewPresenceService[string](cfg, zerolog.Nop())
	require.NoError(t, err)

	service.Watch("player-1", &staticProvider{p: presence.NewGone("Arthur")})

	// Act
	ctx := context.Background()
	require.NoError(t, service.Start(ctx))
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = service.Shutdown(shutdownCtx)
	})

	port := service.GetHTTPPort()
	require.NotEqual(t, ":0", port)

	// Assert: the base server's health endpoint is mounted.
	resp, err := http.Get(fmt.Sprintf("http://localhost%s/healthz", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Assert: the presence handler is mounted on the same mux.
	resp, err = http.Get(fmt.Sprintf("http://localhost%s/presence?key=player-1", port))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status microservice.PresenceStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "gone", status.State)
	assert.False(t, status.Exists)
	assert.Equal(t, "Arthur", status.Value)

	// Unwatch removes the key from the running service.
	service.Unwatch("player-1")
	resp, err = http.Get(fmt.Sprintf("http://localhost%s/presence?key=player-1", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
