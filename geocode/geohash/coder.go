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

// Package geohash is an offline geocode.Coder producing geohash strings.
package geohash

import (
	"context"
	"errors"
	"fmt"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/geocode"
)

const (
	// DefaultPrecision gives cells of roughly 150m x 150m.
	DefaultPrecision = 7

	maxPrecision = 12
)

// ErrInvalidPrecision indicates a precision outside 1..12.
var ErrInvalidPrecision = errors.New("geohash: precision must be between 1 and 12")

// Coder encodes coordinates locally without any network access.
type Coder struct {
	precision int
}

var _ geocode.Coder = (*Coder)(nil)

// New creates a Coder emitting geohashes of the given length.
func New(precision int) (*Coder, error) {
	if precision < 1 || precision > maxPrecision {
		return nil, ErrInvalidPrecision
	}
	return &Coder{precision: precision}, nil
}

// Precision returns the geohash length produced by the coder.
func (c *Coder) Precision() int {
	return c.precision
}

// Encode returns the geohash of the point, trimmed to the configured precision.
func (c *Coder) Encode(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}
	if err := geocode.ValidateCoordinates(lat, lon); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}

	gh := geohash.Encode(lat, lon)
	if len(gh) > c.precision {
		gh = gh[:c.precision]
	}
	return gh, nil
}
