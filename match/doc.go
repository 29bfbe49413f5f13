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

// Package match answers free-text address queries against a vector index of
// the postal catalog.
//
// A Matcher runs one query through these stages:
//   - clean and normalize the text and pull out any 6-digit pincode
//   - embed the cleaned text and retrieve an over-fetched candidate pool
//   - re-rank the pool with literal-match boosts and keep the top results
//   - optionally attach a location code to each returned record
//
// A Matcher holds only immutable state and is safe for concurrent use.
package match
