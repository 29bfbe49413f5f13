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

package core

import (
	"fmt"
	"strings"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - OfficeName must not be blank
//   - Pincode must be exactly 6 ASCII digits
//   - Coordinates, when present, must be valid latitude/longitude
//
// NOT validated:
//   - District and State (the dataset may omit them)
//   - OfficeType and Delivery (free text)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if strings.TrimSpace(record.OfficeName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyOfficeName)
	}

	if !IsValidPincode(record.Pincode) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrInvalidPincode, record.Pincode)
	}

	if record.HasCoords && !IsValidCoordinate(record.Latitude, record.Longitude) {
		return fmt.Errorf("%w: %w: (%f, %f)", ErrInvalidRecord, ErrInvalidCoordinates, record.Latitude, record.Longitude)
	}

	return nil
}

// IsValidPincode reports whether s is a 6-digit postal code.
func IsValidPincode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidCoordinate checks latitude is within [-90, 90] and longitude within [-180, 180].
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
