package dataset

import (
	"context"

	"github.com/poiesic/pinmatch/core"
)

// CSVSource reads the catalog from a CSV file each time records are requested.
type CSVSource struct {
	Path   string
	Loader *Loader
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string, opts ...Option) *CSVSource {
	return &CSVSource{Path: path, Loader: NewLoader(opts...)}
}

// Records loads the file.
func (s *CSVSource) Records(ctx context.Context) ([]core.Record, error) {
	records, _, err := s.Loader.LoadFile(ctx, s.Path)
	return records, err
}
