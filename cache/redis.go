package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed schema store.
type RedisConfig struct {
	// Redis address, e.g. "localhost:6379".
	Addr string `yaml:"addr" json:"addr"`

	// Password, empty for none.
	Password string `yaml:"password" json:"password"`

	// Database number.
	DB int `yaml:"db" json:"db"`

	// KeyPrefix namespaces schema entries, default "xmlcast:schema:".
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// DialTimeout bounds the initial connectivity check.
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// DefaultRedisConfig returns the default Redis store configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		KeyPrefix:   "xmlcast:schema:",
		DialTimeout: 5 * time.Second,
	}
}

// RedisStore shares derived schema text across processes. Within a
// process it layers a MemoryStore in front of Redis, so the
// compute-once discipline still holds locally; across processes the
// first writer wins via SET NX and later writers adopt the stored
// value. Entries never expire: schema text is a pure function of the
// type declaration.
type RedisStore struct {
	client *redis.Client
	local  *MemoryStore
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "xmlcast:schema:"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		local:  NewMemoryStore(),
		prefix: cfg.KeyPrefix,
		logger: logger.With(zap.String("component", "schema_cache")),
	}, nil
}

// SchemaFor implements Store.
func (s *RedisStore) SchemaFor(ctx context.Context, key string, compute func() (string, error)) (string, error) {
	return s.local.SchemaFor(ctx, key, func() (string, error) {
		rkey := s.prefix + key

		text, err := s.client.Get(ctx, rkey).Result()
		if err == nil {
			s.logger.Debug("schema cache hit", zap.String("key", key))
			return text, nil
		}
		if err != redis.Nil {
			return "", fmt.Errorf("schema cache read: %w", err)
		}

		computed, err := compute()
		if err != nil {
			return "", err
		}

		// First writer wins; everyone reads back the surviving value.
		if err := s.client.SetNX(ctx, rkey, computed, 0).Err(); err != nil {
			return "", fmt.Errorf("schema cache write: %w", err)
		}
		stored, err := s.client.Get(ctx, rkey).Result()
		if err != nil {
			return "", fmt.Errorf("schema cache readback: %w", err)
		}
		s.logger.Debug("schema cache populated", zap.String("key", key))
		return stored, nil
	})
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
