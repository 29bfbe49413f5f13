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

// Package geocode defines the collaborator that turns coordinates into a
// short location code attached to match results.
package geocode

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCoordinates indicates latitude or longitude is outside its range.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrEmptyCode indicates the backend answered without a code.
	ErrEmptyCode = errors.New("empty location code")
)

// Coder encodes a coordinate pair into a location code.
// Implementations must be safe for concurrent use.
type Coder interface {
	Encode(ctx context.Context, lat, lon float64) (string, error)
}

// CoderFunc adapts a function to the Coder interface.
type CoderFunc func(ctx context.Context, lat, lon float64) (string, error)

// Encode calls f.
func (f CoderFunc) Encode(ctx context.Context, lat, lon float64) (string, error) {
	return f(ctx, lat, lon)
}

// ValidateCoordinates checks that lat and lon are within their ranges.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
