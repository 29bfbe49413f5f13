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

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/pinmatch/core"
)

// Hit is one search result: the row of a stored vector and its inner product
// with the query.
type Hit struct {
	Row   int
	Score float32
}

// Flat is an exact inner-product index.
// It is populated once by Add and is read-only afterwards; Search is safe for
// concurrent use.
type Flat struct {
	mu     sync.RWMutex
	dim    int
	count  int
	data   []float32
	sealed bool
}

// New creates an empty index for vectors of length dim.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return &Flat{dim: dim}, nil
}

// Add stores vectors as rows 0..len(vectors)-1. It can be called only once.
func (f *Flat) Add(vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sealed {
		return ErrIndexSealed
	}

	data := make([]float32, 0, len(vectors)*f.dim)
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: row %d has %d, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
		data = append(data, v...)
	}

	f.data = data
	f.count = len(vectors)
	f.sealed = true
	return nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Vector returns a copy of the vector stored at row.
func (f *Flat) Vector(row int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if row < 0 || row >= f.count {
		return nil, false
	}
	return slices.Clone(f.row(row)), true
}

// Vectors returns a copy of all stored vectors in row order.
func (f *Flat) Vectors() [][]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([][]float32, f.count)
	for i := range out {
		out[i] = slices.Clone(f.row(i))
	}
	return out
}

func (f *Flat) row(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim]
}

// Search returns the k rows with the highest inner product against query.
// Scores are non-increasing; equal scores are ordered by ascending row.
// k <= 0 or an empty index yields no hits, k > Len() yields Len() hits.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: %w: query has %d, index has %d", core.ErrIndex, ErrDimensionMismatch, len(query), f.dim)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || f.count == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, f.count)
	for i := range hits {
		hits[i] = Hit{Row: i, Score: dot(query, f.row(i))}
	}

	slices.SortFunc(hits, compareHits)
	return hits[:min(k, len(hits))], nil
}

// compareHits orders by descending score, then ascending row.
func compareHits(a, b Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Row, b.Row)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
