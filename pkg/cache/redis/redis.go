// Package redis provides a cache.Backend on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/answerdesk/pkg/cache"
)

// Config is the configuration for the Redis cache backend.
type Config struct {
	// URL is a redis:// connection URL, e.g. "redis://localhost:6379/0".
	URL string
}

// Backend implements cache.Backend with GET and SET EX.
type Backend struct {
	client *goredis.Client
}

// NewBackend parses the connection URL and verifies the server is reachable.
func NewBackend(ctx context.Context, c Config) (*Backend, error) {
	opts, err := goredis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", cache.ErrBackend, err)
	}

	return &Backend{client: client}, nil
}

// NewBackendWithClient wraps an existing client.
func NewBackendWithClient(client *goredis.Client) *Backend {
	return &Backend{client: client}
}

// Get returns the value for key. redis.Nil is reported as a miss.
func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get: %w", cache.ErrBackend, err)
	}
	return value, true, nil
}

// Set stores value with an expiry of ttl (SET key value EX ttl).
func (b *Backend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", cache.ErrBackend, err)
	}
	return nil
}

// Close closes the client connection pool.
func (b *Backend) Close() error {
	return b.client.Close()
}

var _ cache.Backend = (*Backend)(nil)
