package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend owns the BadgerDB handle behind the catalog.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) log(level slog.Level, format string, args []any) {
	a.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args) }
func (a slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args) }
func (a slogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelInfo, format, args) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args) }

type backendConfig struct {
	inMemory bool
	logger   *slog.Logger
}

// BackendOption configures OpenBackend.
type BackendOption func(*backendConfig)

// InMemory keeps the database in memory; the directory argument is ignored.
func InMemory() BackendOption {
	return func(c *backendConfig) { c.inMemory = true }
}

// WithBackendLogger sets the logger badger messages are written to.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(c *backendConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// OpenBackend opens the database in dir, creating the directory when needed.
func OpenBackend(dir string, opts ...BackendOption) (*Backend, error) {
	cfg := backendConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("component", "catalog-db")

	var dbOpts badger.Options
	if cfg.inMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// MkdirAll also fails when dir exists as a regular file.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dbOpts = badger.DefaultOptions(dir)
	}
	// Catalog rows are small and mostly text; zstd keeps the directory compact.
	dbOpts = dbOpts.
		WithLogger(slogAdapter{logger: logger}).
		WithCompression(options.ZSTD)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", dir, err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn in a transaction that is always discarded afterwards.
// Callers only read through it; writes go through WithBatch.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithBatch streams writes through a WriteBatch, flushed only when fn succeeds.
// Unlike a transaction it is not bounded by badger's txn size limit.
func (b *Backend) WithBatch(fn func(wb *badger.WriteBatch) error) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb); err != nil {
		return err
	}
	return wb.Flush()
}

// DeletePrefix removes every key under prefix and reports how many were removed.
func (b *Backend) DeletePrefix(prefix []byte) (int, error) {
	keys, err := b.keysWithPrefix(prefix)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	err = b.WithBatch(func(wb *badger.WriteBatch) error {
		for _, key := range keys {
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (b *Backend) keysWithPrefix(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	return keys, err
}
