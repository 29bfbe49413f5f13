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

package index

import "errors"

var (
	// ErrInvalidDimension is returned for a non-positive dimension.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexSealed is returned when Add is called a second time.
	ErrIndexSealed = errors.New("index already populated")

	// ErrInvalidMagic is returned when decoded data does not start with the index magic.
	ErrInvalidMagic = errors.New("invalid index magic")

	// ErrUnsupportedVersion is returned for an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported index version")

	// ErrChecksumMismatch is returned when the trailer does not match the content.
	ErrChecksumMismatch = errors.New("index checksum mismatch")

	// ErrTooLarge is returned when a decoded header announces an implausible size.
	ErrTooLarge = errors.New("index too large")
)
