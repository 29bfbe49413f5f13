package storage

import (
	"context"

	"github.com/poiesic/pinmatch/core"
)

// CatalogRepository stores the postal catalog and answers directory lookups.
type CatalogRepository interface {
	// Import replaces the stored catalog with records, preserving their order.
	// Invalid records are skipped; the number stored is returned.
	Import(ctx context.Context, records []core.Record) (int, error)

	// Records returns every stored record in import order.
	Records(ctx context.Context) ([]core.Record, error)

	// ByPincode returns the records with exactly this postal code.
	ByPincode(ctx context.Context, pincode string) ([]core.Record, error)

	// ByID returns the record whose content ID is id, or ErrNotFound.
	ByID(ctx context.Context, id core.ID) (*core.Record, error)

	// ByOffice returns records whose office name contains name, case-insensitively.
	// At most limit records are returned.
	ByOffice(ctx context.Context, name string, limit int) ([]core.Record, error)

	// ByDistrict returns records whose district contains district, case-insensitively.
	// At most limit records are returned.
	ByDistrict(ctx context.Context, district string, limit int) ([]core.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
