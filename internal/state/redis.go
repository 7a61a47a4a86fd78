package state

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// checkpointKey is the single record the tracker keeps in Redis.
const checkpointKey = "hyperrecap:checkpoint"

// RedisConfig holds connection parameters for the Redis state backend.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// RedisStore keeps the checkpoint as a JSON value under a single key. It is
// the backend of choice when the tracker runs on ephemeral hosts without a
// persistent filesystem.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisStore connects to Redis, pings it to verify connectivity, and
// returns the store. It returns an error if the connection cannot be
// established.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("state: redis ping: %w", err)
	}

	return &RedisStore{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "state")),
	}, nil
}

// Load reads the checkpoint. A missing key returns (nil, nil); an unparsable
// value is logged and treated as absent.
func (s *RedisStore) Load(ctx context.Context) (*domain.Checkpoint, error) {
	data, err := s.rdb.Get(ctx, checkpointKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Warn("failed to read checkpoint from redis, starting fresh",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("failed to parse checkpoint from redis, starting fresh",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return &cp, nil
}

// Save overwrites the checkpoint. The key has no TTL; a stale checkpoint only
// narrows future incremental windows and is always superseded by the next run.
func (s *RedisStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("state: marshal checkpoint: %w", err)
	}
	if err := s.rdb.Set(ctx, checkpointKey, data, 0).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
