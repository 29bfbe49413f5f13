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

import "errors"

// Engine failure categories. Callers test for these with errors.Is.
var (
	// ErrStartup indicates the catalog could not be loaded or is empty.
	// The engine never becomes ready after this error.
	ErrStartup = errors.New("startup failed")

	// ErrModel indicates the embedding backend failed.
	ErrModel = errors.New("embedding model error")

	// ErrIndex indicates a corrupt, undecodable or inconsistent vector index.
	ErrIndex = errors.New("index error")

	// ErrEnrichment indicates a geocode lookup failed or timed out.
	// It is never returned from a match; it is recorded on the affected result.
	ErrEnrichment = errors.New("enrichment failed")

	// ErrInvalidQuery indicates invalid match parameters.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotReady indicates the engine has not finished initializing.
	ErrNotReady = errors.New("engine not ready")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyOfficeName indicates the OfficeName field is empty.
	ErrEmptyOfficeName = errors.New("office name cannot be empty")

	// ErrInvalidPincode indicates the Pincode is not a 6-digit string.
	ErrInvalidPincode = errors.New("pincode must be 6 digits")

	// ErrInvalidCoordinates indicates latitude or longitude is out of range.
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)
