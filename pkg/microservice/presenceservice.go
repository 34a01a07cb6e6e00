package microservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// PresenceService composes a BaseServer with a PresenceHandler: an HTTP
// service whose job is answering "is this record still there?" for a set of
// watched keys.
type PresenceService[T any] struct {
	*BaseServer
	handler *PresenceHandler[T]
}

var _ Service = (*PresenceService[struct{}])(nil)

// NewPresenceService builds the service from common configuration and
// mounts the presence handler on the base server's mux. The configured log
// level is applied to the injected logger; an unknown level is ignored
// rather than rejected.
func NewPresenceService[T any](cfg *BaseConfig, logger zerolog.Logger) (*PresenceService[T], error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.HTTPPort == "" {
		return nil, errors.New("http port is required")
	}

	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			logger = logger.Level(lvl)
		}
	}
	if cfg.ServiceName != "" {
		logger = logger.With().Str("service", cfg.ServiceName).Logger()
	}

	base := NewBaseServer(logger, cfg.HTTPPort)
	handler := NewPresenceHandler[T](logger)
	handler.Register(base.Mux())

	return &PresenceService[T]{BaseServer: base, handler: handler}, nil
}

// Start brings the HTTP server up. The context parameter satisfies the
// Service contract; listening itself does not block on it.
func (s *PresenceService[T]) Start(_ context.Context) error {
	return s.BaseServer.Start()
}

// Watch registers a provider as the authority for one key, replacing any
// previous registration.
func (s *PresenceService[T]) Watch(key string, provider StatusProvider[T]) {
	s.handler.Watch(key, provider)
}

// Unwatch removes a key's registration.
func (s *PresenceService[T]) Unwatch(key string) {
	s.handler.Unwatch(key)
}
