// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/pinmatch/core"
)

// Loader turns CSV rows into catalog records.
type Loader struct {
	rules          []Rule
	deliveryFilter bool
	logger         *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(l *Loader) {
		l.rules = rules
	}
}

// WithAllOffices keeps non-delivery offices.
func WithAllOffices() Option {
	return func(l *Loader) {
		l.deliveryFilter = false
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger.With("component", "dataset")
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		rules:          DefaultRules,
		deliveryFilter: true,
		logger:         slog.Default().With("component", "dataset"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats counts what happened to the input rows.
type Stats struct {
	Rows        int
	Kept        int
	MissingKey  int // empty office name or pincode
	NonDelivery int
}

// Load reads a CSV with a header row. Rows without an office name or pincode
// are dropped; when a delivery column exists only delivery offices are kept.
// Unparseable coordinates leave the record without coordinates.
func (l *Loader) Load(ctx context.Context, r io.Reader) ([]core.Record, Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("%w: dataset has no header", core.ErrStartup)
		}
		return nil, stats, fmt.Errorf("%w: reading header: %w", core.ErrStartup, err)
	}

	cols, err := DetectColumns(header, l.rules)
	if err != nil {
		return nil, stats, err
	}
	filterDelivery := l.deliveryFilter && cols.Has(FieldDelivery)

	records := make([]core.Record, 0, 1024)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: line %d: %w", core.ErrStartup, stats.Rows+2, err)
		}
		stats.Rows++
		if stats.Rows%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		rec := core.Record{
			OfficeName: cell(row, cols, FieldOfficeName),
			Pincode:    cell(row, cols, FieldPincode),
			District:   cell(row, cols, FieldDistrict),
			State:      cell(row, cols, FieldState),
			OfficeType: cell(row, cols, FieldOfficeType),
			Delivery:   cell(row, cols, FieldDelivery),
		}
		if rec.OfficeName == "" || rec.Pincode == "" {
			stats.MissingKey++
			continue
		}
		if filterDelivery && !isDelivery(rec.Delivery) {
			stats.NonDelivery++
			continue
		}

		lat, latOK := parseCoordinate(cell(row, cols, FieldLatitude))
		lon, lonOK := parseCoordinate(cell(row, cols, FieldLongitude))
		if latOK && lonOK && core.IsValidCoordinate(lat, lon) {
			rec.Latitude, rec.Longitude, rec.HasCoords = lat, lon, true
		}

		records = append(records, rec)
	}

	stats.Kept = len(records)
	l.logger.Info("loaded dataset",
		"rows", stats.Rows,
		"kept", stats.Kept,
		"missing_key", stats.MissingKey,
		"non_delivery", stats.NonDelivery)
	return records, stats, nil
}

// LoadFile reads the CSV at path.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]core.Record, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %w", core.ErrStartup, err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

func cell(row []string, cols Columns, f Field) string {
	i, ok := cols[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isDelivery reports a delivery status such as "Delivery"; "Non-Delivery" is rejected.
func isDelivery(status string) bool {
	status = strings.ToLower(status)
	return strings.Contains(status, "delivery") && !strings.Contains(status, "non")
}

func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
