// Package cache keeps recently read blob payloads in Redis. Blob keys are
// write-once, so entries never need invalidation; the TTL only bounds memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/internal/config"
)

const keyPrefix = "docvault:blob:"

// BlobCache is a read-through cache of immutable blob content keyed by blob key.
type BlobCache interface {
	// Get returns the cached bytes and true, or false on a miss.
	Get(ctx context.Context, blobKey string) ([]byte, bool, error)
	// Set stores content under blobKey.
	Set(ctx context.Context, blobKey string, content []byte) error
}

// Redis implements BlobCache on go-redis.
type Redis struct {
	client   *redis.Client
	ttl      time.Duration
	maxBytes int
}

var _ BlobCache = (*Redis)(nil)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedis wraps client. Payloads larger than maxBytes are not cached; maxBytes <= 0 means no limit.
func NewRedis(client *redis.Client, ttl time.Duration, maxBytes int) *Redis {
	return &Redis{client: client, ttl: ttl, maxBytes: maxBytes}
}

// Get looks up blobKey.
func (r *Redis) Get(ctx context.Context, blobKey string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+blobKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get %s: %w", blobKey, err)
	}
	return data, true, nil
}

// Set stores content unless it exceeds the size limit.
func (r *Redis) Set(ctx context.Context, blobKey string, content []byte) error {
	if r.maxBytes > 0 && len(content) > r.maxBytes {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefix+blobKey, content, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", blobKey, err)
	}
	return nil
}

// Pinger is a cache backend that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ Pinger = (*Redis)(nil)

// Ping checks if the Redis backend is healthy.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Noop never caches anything.
type Noop struct{}

var _ BlobCache = Noop{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error        { return nil }
