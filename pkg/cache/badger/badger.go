// Package badger provides an embedded cache.Backend on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/cache"
)

// Config is the configuration for the Badger cache backend.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory runs badger without touching disk.
	InMemory bool

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Backend implements cache.Backend on top of badger entries with TTL.
type Backend struct {
	db *badger.DB
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// NewBackend opens (or creates) the badger database.
func NewBackend(c Config) (*Backend, error) {
	var opts badger.Options
	if c.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if c.Path == "" {
			return nil, errors.New("badger cache path is required")
		}
		if err := os.MkdirAll(c.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating badger directory: %w", err)
		}
		opts = badger.DefaultOptions(c.Path)
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = &badgerLogger{logger: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	return &Backend{db: db}, nil
}

// Get returns the value for key. Expired entries are invisible to badger reads.
func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get: %w", cache.ErrBackend, err)
	}
	return string(value), true, nil
}

// Set writes value with a TTL, overwriting any earlier entry.
func (b *Backend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), []byte(value)).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: set: %w", cache.ErrBackend, err)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

var _ cache.Backend = (*Backend)(nil)
