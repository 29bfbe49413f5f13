package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/storage"
)

// CatalogRepository implements storage.CatalogRepository on BadgerDB.
type CatalogRepository struct {
	backend   *Backend
	ownsStore bool
	logger    *slog.Logger
}

var _ storage.CatalogRepository = (*CatalogRepository)(nil)

// newCatalogRepository wraps an open backend. The backend is not closed by Close.
func newCatalogRepository(backend *Backend) *CatalogRepository {
	return &CatalogRepository{
		backend: backend,
		logger:  backend.logger.With("repository", "catalog"),
	}
}

// NewCatalogRepository opens (or creates) a catalog database in dir.
func NewCatalogRepository(dir string, opts ...BackendOption) (storage.CatalogRepository, error) {
	backend, err := OpenBackend(dir, opts...)
	if err != nil {
		return nil, err
	}
	repo := newCatalogRepository(backend)
	repo.ownsStore = true
	return repo, nil
}

// Close closes the database if the repository opened it.
func (r *CatalogRepository) Close() error {
	if r.ownsStore {
		return r.backend.Close()
	}
	return nil
}

func (r *CatalogRepository) checkOpen() error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Import replaces the catalog with the valid entries of records.
func (r *CatalogRepository) Import(ctx context.Context, records []core.Record) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	removed, err := r.backend.DeletePrefix([]byte(catalogPrefix))
	if err != nil {
		return 0, err
	}

	var stored uint64
	skipped := 0
	err = r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for i := range records {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			record := &records[i]
			if err := core.ValidateRecord(record); err != nil {
				skipped++
				continue
			}

			if err := wb.Set(makeRecordKey(stored), storage.MarshalRecord(record)); err != nil {
				return err
			}
			if err := wb.Set(makePincodeKey(record.Pincode, stored), []byte{}); err != nil {
				return err
			}
			if err := wb.Set(makeIDKey(record.ID()), encodeSeq(stored)); err != nil {
				return err
			}
			stored++
		}

		return wb.Set([]byte(catalogCountKey), encodeSeq(stored))
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("imported catalog", "stored", stored, "skipped", skipped, "replaced_keys", removed)
	return int(stored), nil
}

// Records returns all records in import order.
func (r *CatalogRepository) Records(ctx context.Context) ([]core.Record, error) {
	return r.scan(ctx, 0, func(*core.Record) bool { return true })
}

// ByPincode returns records with exactly this pincode, in import order.
func (r *CatalogRepository) ByPincode(ctx context.Context, pincode string) ([]core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if !core.IsValidPincode(pincode) {
		return nil, storage.ErrInvalidQuery
	}

	var results []core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialPincodeKey(pincode)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := readRecord(tx, makeRecordKey(seqFromPincodeKey(iter.Item().Key())))
			if err != nil {
				return err
			}
			results = append(results, *record)
		}
		return nil
	}, false)
	return results, err
}

// ByID returns the record with this content ID.
// When several imported rows share an ID the last one wins.
func (r *CatalogRepository) ByID(ctx context.Context, id core.ID) (*core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeIDKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		var seq uint64
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return storage.ErrTruncatedData
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return err
		}
		record, err = readRecord(tx, makeRecordKey(seq))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ByOffice returns up to limit records whose office name contains name.
func (r *CatalogRepository) ByOffice(ctx context.Context, name string, limit int) ([]core.Record, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	return r.scan(ctx, limit, func(rec *core.Record) bool {
		return strings.Contains(strings.ToLower(rec.OfficeName), needle)
	})
}

// ByDistrict returns up to limit records whose district contains district.
func (r *CatalogRepository) ByDistrict(ctx context.Context, district string, limit int) ([]core.Record, error) {
	needle := strings.ToLower(strings.TrimSpace(district))
	if needle == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	return r.scan(ctx, limit, func(rec *core.Record) bool {
		return strings.Contains(strings.ToLower(rec.District), needle)
	})
}

// Count returns the number of stored records.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	var count uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(catalogCountKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return storage.ErrTruncatedData
			}
			count = binary.BigEndian.Uint64(val)
			return nil
		})
	}, false)
	return int(count), err
}

// scan walks records in import order and collects those accepted by keep.
// limit <= 0 means no limit.
func (r *CatalogRepository) scan(ctx context.Context, limit int, keep func(*core.Record) bool) ([]core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var results []core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if !keep(record) {
				continue
			}
			results = append(results, *record)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

func readRecord(tx *badger.Txn, key []byte) (*core.Record, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record *core.Record
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	return record, err
}
