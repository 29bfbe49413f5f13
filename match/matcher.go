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

package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/pinmatch/ai"
	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/geocode"
	"github.com/poiesic/pinmatch/index"
	"github.com/poiesic/pinmatch/ranking"
	"github.com/poiesic/pinmatch/textproc"
	"github.com/poiesic/pinmatch/vectorize"
)

const (
	// DefaultOverFetch is how many candidates are retrieved per requested result.
	DefaultOverFetch = 3
	// DefaultEnrichTimeout bounds a single geocode call.
	DefaultEnrichTimeout = 2 * time.Second
)

const (
	reasonNoCoordinates = "record has no coordinates"
	reasonNoCoder       = "no geocoder configured"
)

// Matcher answers address queries over an immutable index and record table.
type Matcher struct {
	embedder      ai.Embedder
	index         *index.Flat
	records       []core.Record
	ranker        *ranking.Ranker
	coder         geocode.Coder
	overFetch     int
	enrichTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "matcher")
		return nil
	}
}

// WithRanker replaces the default ranker.
func WithRanker(r *ranking.Ranker) Option {
	return func(m *Matcher) error {
		if r != nil {
			m.ranker = r
		}
		return nil
	}
}

// WithGeocoder sets the collaborator used for enrichment.
// Without one every requested enrichment is unavailable.
func WithGeocoder(c geocode.Coder) Option {
	return func(m *Matcher) error {
		m.coder = c
		return nil
	}
}

// WithOverFetch sets the candidate pool size as a multiple of topK.
func WithOverFetch(factor int) Option {
	return func(m *Matcher) error {
		if factor < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidOverFetch, factor)
		}
		m.overFetch = factor
		return nil
	}
}

// WithEnrichTimeout sets the per-record geocode timeout. Zero disables it.
func WithEnrichTimeout(d time.Duration) Option {
	return func(m *Matcher) error {
		m.enrichTimeout = d
		return nil
	}
}

// New creates a Matcher. Row i of idx must correspond to records[i].
func New(embedder ai.Embedder, idx *index.Flat, records []core.Record, opts ...Option) (*Matcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if idx.Len() != len(records) {
		return nil, fmt.Errorf("%w: %w: index has %d rows, %d records",
			core.ErrIndex, ErrRowCountMismatch, idx.Len(), len(records))
	}

	m := &Matcher{
		embedder:      embedder,
		index:         idx,
		records:       records,
		ranker:        ranking.New(),
		overFetch:     DefaultOverFetch,
		enrichTimeout: DefaultEnrichTimeout,
		logger:        slog.Default().With("component", "matcher"),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Len returns the number of catalog records searched.
func (m *Matcher) Len() int {
	return len(m.records)
}

// ValidateQuery checks match parameters without touching any index.
func ValidateQuery(query string, topK int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", core.ErrInvalidQuery, topK)
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query text is empty", core.ErrInvalidQuery)
	}
	return nil
}

// Match returns up to topK catalog records for query, best first.
func (m *Matcher) Match(ctx context.Context, query string, topK int, includeEnrichment bool) (*core.MatchResponse, error) {
	return m.MatchWithMonitor(ctx, query, topK, includeEnrichment, nil)
}

// MatchWithMonitor is Match with callbacks at each stage of the process.
func (m *Matcher) MatchWithMonitor(ctx context.Context, query string, topK int, includeEnrichment bool, monitor MatchMonitor) (*core.MatchResponse, error) {
	start := time.Now()

	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := ValidateQuery(query, topK); err != nil {
		return nil, err
	}

	normalized := textproc.Normalize(query)
	cleaned := textproc.Clean(query)
	pincode := textproc.ExtractPincode(query)
	monitor.Start(query, cleaned, pincode)

	embedding, err := m.embedder.EmbedText(ctx, cleaned)
	if err != nil {
		m.logger.Error("error generating embedding for query", "query", query, "err", err)
		if errors.Is(err, core.ErrModel) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrModel, err)
	}

	hits, err := m.index.Search(vectorize.NormalizeVector(embedding), m.poolSize(topK))
	if err != nil {
		m.logger.Error("error searching index", "err", err)
		return nil, err
	}
	monitor.AfterRetrieval(hits)

	pool := make([]ranking.Scored, len(hits))
	for i, hit := range hits {
		pool[i] = ranking.Scored{
			Record:     &m.records[hit.Row],
			Row:        hit.Row,
			Similarity: hit.Score,
		}
	}

	candidates := m.ranker.Rank(normalized, pincode, pool)
	monitor.AfterRanking(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := make([]core.Match, len(candidates))
	for i, c := range candidates {
		matches[i] = core.Match{
			Rank:          i + 1,
			Record:        c.Record,
			Similarity:    round4(c.Similarity),
			Confidence:    round4(c.Confidence),
			MatchedTokens: c.MatchedTokens,
		}
	}

	if includeEnrichment {
		m.enrich(ctx, matches, monitor)
	}

	resp := &core.MatchResponse{
		RequestID:        uuid.NewString(),
		Query:            query,
		NormalizedQuery:  normalized,
		Matches:          matches,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	monitor.Finish(resp)

	m.logger.Debug("query matched",
		"request_id", resp.RequestID,
		"pool", len(hits),
		"matches", len(matches),
		"ms", resp.ProcessingTimeMs)
	return resp, nil
}

// enrich fills in the enrichment of every match. Failures are recorded on the
// match and never abort the request.
// poolSize is topK times the over-fetch factor, capped at the index size so
// large topK values neither overflow nor over-allocate.
func (m *Matcher) poolSize(topK int) int {
	n := m.index.Len()
	if topK >= n || topK > math.MaxInt/m.overFetch {
		return n
	}
	return min(topK*m.overFetch, n)
}

func (m *Matcher) enrich(ctx context.Context, matches []core.Match, monitor MatchMonitor) {
	if len(matches) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(len(matches))

	for i := range matches {
		rec := matches[i].Record
		lat, lon, ok := rec.Coordinates()
		if !ok {
			matches[i].Enrichment = core.Enrichment{Status: core.EnrichmentUnavailable, Reason: reasonNoCoordinates}
			continue
		}
		if m.coder == nil {
			matches[i].Enrichment = core.Enrichment{Status: core.EnrichmentUnavailable, Reason: reasonNoCoder}
			continue
		}

		g.Go(func() error {
			matches[i].Enrichment = m.lookup(ctx, rec, lat, lon, monitor)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Matcher) lookup(ctx context.Context, rec *core.Record, lat, lon float64, monitor MatchMonitor) core.Enrichment {
	if m.enrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.enrichTimeout)
		defer cancel()
	}

	code, err := m.coder.Encode(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, core.ErrEnrichment) {
			err = fmt.Errorf("%w: %w", core.ErrEnrichment, err)
		}
		m.logger.Warn("enrichment failed", "office", rec.OfficeName, "pincode", rec.Pincode, "err", err)
		monitor.EnrichmentFailed(rec, err)
		return core.Enrichment{Status: core.EnrichmentUnavailable, Reason: err.Error()}
	}
	if code == "" {
		return core.Enrichment{Status: core.EnrichmentUnavailable, Reason: geocode.ErrEmptyCode.Error()}
	}
	return core.Enrichment{Status: core.EnrichmentSucceeded, Code: code}
}

// round4 rounds to four decimal places for presentation.
func round4(v float32) float32 {
	return float32(math.Round(float64(v)*1e4) / 1e4)
}
