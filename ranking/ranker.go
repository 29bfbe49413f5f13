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

package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/corpus"
	"github.com/poiesic/pinmatch/textproc"
)

// Boosts are the confidence increments for each kind of literal agreement.
type Boosts struct {
	Pincode    float32
	OfficeName float32
	District   float32
	State      float32
}

// DefaultBoosts returns the standard increments.
func DefaultBoosts() Boosts {
	return Boosts{
		Pincode:    0.20,
		OfficeName: 0.15,
		District:   0.10,
		State:      0.05,
	}
}

// Flags records which boosts apply to a candidate.
type Flags struct {
	Pincode    bool
	OfficeName bool
	District   bool
	State      bool
}

// Fuse applies the boosts selected by flags to raw in fixed order
// (pincode, office name, district, state), clamping at 1.0 after each step.
// The result never exceeds 1.0, even for a raw score rounded just above it.
func (b Boosts) Fuse(raw float32, flags Flags) float32 {
	confidence := raw
	apply := func(on bool, boost float32) {
		if on {
			confidence = min(1.0, confidence+boost)
		}
	}
	apply(flags.Pincode, b.Pincode)
	apply(flags.OfficeName, b.OfficeName)
	apply(flags.District, b.District)
	apply(flags.State, b.State)
	return min(1.0, confidence)
}

// Scored is a retrieved record with its raw similarity, in retrieval order.
type Scored struct {
	Record     *core.Record
	Row        int
	Similarity float32
}

// Candidate is a re-ranked result.
type Candidate struct {
	Record         *core.Record
	Row            int
	SimilarityRank int // position in the retrieval order, 0-based
	Similarity     float32
	Confidence     float32
	MatchedTokens  []string
	Flags          Flags
}

// Ranker fuses similarity with literal-match boosts.
// A Ranker is immutable and safe for concurrent use.
type Ranker struct {
	boosts Boosts
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithBoosts replaces the default boosts.
func WithBoosts(b Boosts) Option {
	return func(r *Ranker) {
		r.boosts = b
	}
}

// New creates a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{boosts: DefaultBoosts()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Boosts returns the increments in use.
func (r *Ranker) Boosts() Boosts {
	return r.boosts
}

// Flags decides which boosts apply to record for a normalized query and the
// pincode extracted from the raw query.
//
// The office name also counts as present when its base name, without a
// trailing office-type designator such as "SO" or "H.O", occurs in the query.
func (r *Ranker) Flags(normalizedQuery, queryPincode string, record *core.Record) Flags {
	office := containsField(normalizedQuery, textproc.Normalize(record.OfficeName)) ||
		containsField(normalizedQuery, textproc.StripOfficeType(record.OfficeName))

	return Flags{
		Pincode:    queryPincode != "" && queryPincode == record.Pincode,
		OfficeName: office,
		District:   containsField(normalizedQuery, textproc.Normalize(record.District)),
		State:      containsField(normalizedQuery, textproc.Normalize(record.State)),
	}
}

// containsField reports a non-empty field occurring in query.
func containsField(query, field string) bool {
	return field != "" && strings.Contains(query, field)
}

// Rank scores every candidate in pool and returns them sorted by descending
// confidence. Equal confidences keep their retrieval order.
func (r *Ranker) Rank(normalizedQuery, queryPincode string, pool []Scored) []Candidate {
	candidates := make([]Candidate, len(pool))
	for i, s := range pool {
		flags := r.Flags(normalizedQuery, queryPincode, s.Record)
		candidates[i] = Candidate{
			Record:         s.Record,
			Row:            s.Row,
			SimilarityRank: i,
			Similarity:     s.Similarity,
			Confidence:     r.boosts.Fuse(s.Similarity, flags),
			MatchedTokens:  textproc.MatchingTokens(normalizedQuery, corpus.NormalizedSearchText(s.Record)),
			Flags:          flags,
		}
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.SimilarityRank, b.SimilarityRank)
	})
	return candidates
}
