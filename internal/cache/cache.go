// Package cache stores untagged conversion output keyed by source content.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/logger"
)

// ErrCorruptEntry is returned when a stored value cannot be decoded
var ErrCorruptEntry = errors.New("corrupt cache entry")

const keyPrefix = "sticker:"

// Entry is a cached backend output
type Entry struct {
	Backend string
	Data    []byte
}

// Cache defines the interface for the conversion result cache
//
//go:generate mockgen -source=cache.go -destination=../mocks/cache.go -package=mocks -mock_names=Cache=MockCache
type Cache interface {
	// Get returns the entry for key, or nil when there is none
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores an entry under key
	Put(ctx context.Context, key string, entry *Entry) error

	// Close releases the underlying store
	Close() error
}

// Key derives a cache key from the source bytes and a variant describing the conversion knobs
func Key(data []byte, variant string) string {
	h := blake3.New()
	_, _ = h.Write(data)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(variant))
	return hex.EncodeToString(h.Sum(nil))
}

// Config holds configuration for the badger cache
type Config struct {
	// Path is the badger directory. An empty path keeps the cache in memory.
	Path string
	// TTL expires entries after the given duration. Zero keeps entries forever.
	TTL time.Duration
}

type badgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCache opens a badger backed cache
func NewBadgerCache(cfg Config) (Cache, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	return &badgerCache{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (c *badgerCache) Get(ctx context.Context, key string) (*Entry, error) {
	var entry *Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			e, err := decodeEntry(val)
			if err != nil {
				return err
			}
			entry = e
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if entry != nil {
		logger.DebugCtx(ctx, "Cache hit", zap.String("key", key), zap.String("backend", entry.Backend))
	}
	return entry, nil
}

func (c *badgerCache) Put(ctx context.Context, key string, entry *Entry) error {
	value := encodeEntry(entry)
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), value)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	logger.DebugCtx(ctx, "Cached conversion output", zap.String("key", key), zap.Int("size", len(entry.Data)))
	return nil
}

func (c *badgerCache) Close() error {
	return c.db.Close()
}

// encodeEntry lays out an entry as a one-byte backend name length, the name and the data
func encodeEntry(e *Entry) []byte {
	name := e.Backend
	if len(name) > 255 {
		name = name[:255]
	}
	out := make([]byte, 0, 1+len(name)+len(e.Data))
	out = append(out, byte(len(name)))
	out = append(out, name...)
	return append(out, e.Data...)
}

func decodeEntry(val []byte) (*Entry, error) {
	if len(val) < 1 {
		return nil, ErrCorruptEntry
	}
	n := int(val[0])
	if len(val) < 1+n {
		return nil, ErrCorruptEntry
	}

	data := make([]byte, len(val)-1-n)
	copy(data, val[1+n:])
	return &Entry{
		Backend: string(val[1 : 1+n]),
		Data:    data,
	}, nil
}
