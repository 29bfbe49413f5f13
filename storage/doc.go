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

// Package storage persists the matching engine's state.
//
// Two kinds of state live here:
//
//   - the index cache: a directory of artifact files produced by a build and
//     reloaded on the next start (Manager)
//   - the catalog directory: a queryable copy of the postal records
//     (CatalogRepository, implemented by storage/badger)
//
// # Cache Artifacts
//
// A cache consists of
//
//	index.bin         vector index, see package index for the layout
//	metadata.mus.zst  record table, mus encoded and zstd compressed
//	embeddings.lz4    raw corpus embeddings, lz4 framed
//
// The cache is trusted only when every required artifact is present and all of
// them agree on the row count. Save writes each artifact to a temporary file,
// fsyncs and renames it, and publishes index.bin last, so an interrupted save
// never leaves a directory that Exists reports as complete.
//
// The cache is not versioned against the catalog contents or the embedding
// model. Callers must Clear it when either changes.
//
// # Constructor Return Type Pattern
//
// Repository constructors in storage/badger return interfaces:
//
//	repo, err := badger.NewCatalogRepository(path)  // returns storage.CatalogRepository
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package storage
