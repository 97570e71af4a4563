// Package kvstore is the tenant-bound key-value layer over an embedded
// badger database. Every key that reaches the engine is built by TenantKey.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Config configures the badger-backed store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Used by tests and one-shot tools.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// ValueLogFileSize caps each value log file, in bytes.
	ValueLogFileSize int64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ValueLogFileSize == 0 {
		c.ValueLogFileSize = 100 << 20
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("path is required unless in_memory is set")
	}
	if c.ValueLogFileSize < 1<<20 {
		return fmt.Errorf("value_log_file_size must be at least 1MB, got %d", c.ValueLogFileSize)
	}
	return nil
}

// KV is one entry yielded by iteration, with the logical key.
type KV struct {
	Key   string
	Value []byte
}

// Store is the tenant-bound layer. It is safe for concurrent use; badger
// provides the isolation between concurrent transactions.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kvstore config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = cfg.SyncWrites
	opts.ValueLogFileSize = cfg.ValueLogFileSize

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageErr("open", err)
	}

	logger.Info("kvstore opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
	)
	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return storageErr("close", s.db.Close())
}

// Put writes value at key for tenant.
func (s *Store) Put(ctx context.Context, topic Topic, tenant, key string, value []byte) error {
	b := s.NewBatch(tenant)
	b.Put(topic, key, value)
	return s.Commit(ctx, b)
}

// Delete removes key for tenant. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, topic Topic, tenant, key string) error {
	b := s.NewBatch(tenant)
	b.Delete(topic, key)
	return s.Commit(ctx, b)
}

// Get reads key for tenant. A missing key returns ErrNotFound.
func (s *Store) Get(ctx context.Context, topic Topic, tenant, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pk, err := physicalKey(topic, tenant, key)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pk)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		observe("get", topic, ErrNotFound)
		return nil, fmt.Errorf("%s %q: %w", topic, key, ErrNotFound)
	}
	if err != nil {
		err = storageErr("get "+string(topic), err)
		observe("get", topic, err)
		return nil, err
	}
	observe("get", topic, nil)
	return value, nil
}

// Has reports whether key exists for tenant.
func (s *Store) Has(ctx context.Context, topic Topic, tenant, key string) (bool, error) {
	_, err := s.Get(ctx, topic, tenant, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Iterate calls fn for every key of tenant in topic whose logical key
// starts with prefix, in key order. Returning an error from fn stops the
// iteration and is returned as is.
func (s *Store) Iterate(ctx context.Context, topic Topic, tenant, prefix string, fn func(key string, value []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seek, err := physicalKey(topic, tenant, prefix)
	if err != nil {
		return err
	}

	var fnErr error
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			item := it.Item()
			key, ok := logicalKey(topic, tenant, item.KeyCopy(nil))
			if !ok {
				s.logger.DPanic("key outside tenant prefix during iteration",
					zap.String("topic", string(topic)),
					zap.String("tenant", tenant),
				)
				fnErr = ErrCrossTenantKey
				return nil
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if fnErr = fn(key, value); fnErr != nil {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		err = storageErr("iterate "+string(topic), err)
		observe("iterate", topic, err)
		return err
	}
	observe("iterate", topic, nil)
	return fnErr
}

// List collects Iterate into a slice.
func (s *Store) List(ctx context.Context, topic Topic, tenant, prefix string) ([]KV, error) {
	var out []KV
	err := s.Iterate(ctx, topic, tenant, prefix, func(key string, value []byte) error {
		out = append(out, KV{Key: key, Value: value})
		return nil
	})
	return out, err
}

// RunGC runs one round of value log garbage collection.
func (s *Store) RunGC(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.RunValueLogGC(0.5)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return storageErr("value log gc", err)
}
