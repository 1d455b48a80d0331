// Package cache provides the answer cache used as the first resolution layer.
//
// The Layer wraps a pluggable Backend and is strictly best-effort: any backend
// failure (timeout, unreachable server, corrupt entry) is logged and reported to
// callers as a plain miss, so a broken cache can never abort a resolution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// keyPrefix namespaces answer entries in shared backends.
	keyPrefix = "chat:"

	// maxEncodedKeyLen bounds the encoded part of a key to respect backend
	// key-size limits. A hex sha256 digest is 64 characters.
	maxEncodedKeyLen = 64

	defaultOpTimeout = 2 * time.Second
)

// ErrBackend is wrapped by backends for any failure talking to the store.
var ErrBackend = errors.New("cache backend failure")

// Backend is a key/value store with per-entry TTL.
type Backend interface {
	// Get returns the value for key. A missing or expired key is reported as
	// ok=false with a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous entry, expiring after ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Close releases any resources held by the backend.
	Close() error
}

// Config is the configuration for a cache Layer.
type Config struct {
	// Backend is the underlying store.
	Backend Backend

	// OpTimeout bounds each backend call. Defaults to 2s.
	OpTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Layer is the best-effort answer cache.
type Layer struct {
	backend   Backend
	opTimeout time.Duration
	logger    *zap.Logger
}

// New creates a cache Layer over the configured backend.
func New(c Config) (*Layer, error) {
	if c.Backend == nil {
		return nil, errors.New("cache backend is required")
	}

	timeout := c.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Layer{
		backend:   c.Backend,
		opTimeout: timeout,
		logger:    logger,
	}, nil
}

// Key derives the cache key for a question. The question is trimmed and
// case-folded, then hashed so the whole text contributes to the key.
func Key(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	encoded := hex.EncodeToString(sum[:])
	if len(encoded) > maxEncodedKeyLen {
		encoded = encoded[:maxEncodedKeyLen]
	}
	return keyPrefix + encoded
}

// Get looks up key. Backend failures are logged and treated as a miss.
func (l *Layer) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	value, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache get failed, treating as miss",
			zap.String("key", truncateKey(key)),
			zap.Error(err),
		)
		return "", false
	}

	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// Set stores value under key for ttl. Backend failures are logged and dropped.
func (l *Layer) Set(ctx context.Context, key, value string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	if err := l.backend.Set(ctx, key, value, ttl); err != nil {
		l.logger.Warn("cache set failed",
			zap.String("key", truncateKey(key)),
			zap.Duration("ttl", ttl),
			zap.Error(err),
		)
	}
}

// Close closes the underlying backend.
func (l *Layer) Close() error {
	return l.backend.Close()
}

func truncateKey(key string) string {
	if len(key) > 30 {
		return key[:30]
	}
	return key
}
