package pinmatch

import (
	"context"
	"slices"

	"github.com/poiesic/pinmatch/core"
)

// RecordSource supplies the catalog an Engine indexes.
type RecordSource interface {
	Records(ctx context.Context) ([]core.Record, error)
}

// StaticSource serves a fixed set of records.
type StaticSource []core.Record

var _ RecordSource = StaticSource(nil)

// Records returns a copy of the records.
func (s StaticSource) Records(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}

// RecordSourceFunc adapts a function to the RecordSource interface.
type RecordSourceFunc func(ctx context.Context) ([]core.Record, error)

// Records calls f.
func (f RecordSourceFunc) Records(ctx context.Context) ([]core.Record, error) {
	return f(ctx)
}
