package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyKeyPrefix = "facturacion:idempotency:"
	redisConnectTimeout         = 5 * time.Second
)

// RedisIdempotencyStore shares processed request keys across instances.
// Claims are a single SET NX so two replicas racing on the same key cannot
// both win.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
// before returning the store
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client: client,
		prefix: defaultIdempotencyKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client, useful when
// one connection is shared across components
func NewRedisIdempotencyStoreWithClient(client *redis.Client, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = defaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

// MarkProcessed atomically claims a key for the TTL; false means another
// request already holds it
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, s.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark key as processed: %w", err)
	}
	return claimed, nil
}

// IsProcessed reports whether a key is currently claimed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if key is processed: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
