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

package storage

import "errors"

// Catalog errors.
var (
	ErrNotFound      = errors.New("catalog entry not found")
	ErrStorageClosed = errors.New("catalog is closed")
	ErrInvalidQuery  = errors.New("invalid catalog lookup")
)

// Encoding errors shared by the catalog and the cache artifacts.
var (
	ErrSerializationFailed = errors.New("serialization failed")
	ErrTruncatedData       = errors.New("truncated data")
)

// Cache errors. Both are reported to callers wrapped in core.ErrIndex.
var (
	// ErrCacheMissing means at least one required artifact is absent.
	ErrCacheMissing = errors.New("cache artifacts missing")

	// ErrCacheInconsistent means the artifacts disagree on row count or dimension.
	ErrCacheInconsistent = errors.New("cache artifacts inconsistent")
)
