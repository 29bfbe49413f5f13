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

// Package dataset reads post office catalogs from CSV exports.
//
// Column names differ between exports of the postal directory, so columns are
// found by keyword: each field has an ordered list of keywords and the first
// header containing one of them wins. Detection is heuristic and can pick the
// wrong column for unusual headers; a missing office name or pincode column
// fails the load.
package dataset
