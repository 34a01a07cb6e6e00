package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyTTL is applied to values written through Put. Zero means no expiry.
	KeyTTL time.Duration
}

// RedisSource is a string-keyed record source backed by Redis. Values are
// stored as JSON. A redis.Nil reply is an authoritative "not found"; any
// other error is a fetch failure the caller must handle.
type RedisSource[V any] struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewRedisSource creates and connects a new RedisSource.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisSource[V any](ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisSource[V], error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	return &RedisSource[V]{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisSource").Logger(),
		ttl:         cfg.KeyTTL,
	}, nil
}

// Fetch retrieves a record by key. Absence (redis.Nil) is reported through
// the found flag, not as an error.
func (s *RedisSource[V]) Fetch(ctx context.Context, key string) (V, bool, error) {
	var zero V
	cachedData, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("Unexpected Redis error during fetch.")
		return zero, false, fmt.Errorf("redis get failed for key %s: %w", key, err)
	}

	var value V
	if err := json.Unmarshal([]byte(cachedData), &value); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to unmarshal stored data.")
		return zero, false, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return value, true, nil
}

// Put stores a value for a key with the configured TTL.
func (s *RedisSource[V]) Put(ctx context.Context, key string, value V) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to marshal data for storage.")
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := s.redisClient.Set(ctx, key, jsonData, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to set data in Redis.")
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *RedisSource[V]) Delete(ctx context.Context, key string) error {
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s from redis: %w", key, err)
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisSource[V]) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}
