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

// Package pinmatch matches free-text postal addresses against a catalog of
// post offices.
//
// An Engine loads the catalog from a RecordSource, embeds every record once
// and keeps the resulting vector index on disk so later starts can skip the
// embedding step. Queries are embedded, compared against the index and
// re-ranked with literal-match boosts for pincode, office, district and state.
package pinmatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/pinmatch/ai"
	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/corpus"
	"github.com/poiesic/pinmatch/geocode"
	"github.com/poiesic/pinmatch/index"
	"github.com/poiesic/pinmatch/match"
	"github.com/poiesic/pinmatch/ranking"
	"github.com/poiesic/pinmatch/storage"
	"github.com/poiesic/pinmatch/vectorize"
)

// DefaultCacheDir is where index artifacts are kept unless configured otherwise.
const DefaultCacheDir = "cache"

var (
	// ErrSourceRequired is returned when a record source is not provided.
	ErrSourceRequired = errors.New("record source required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrClosed is returned by an Engine after Close.
	ErrClosed = errors.New("engine closed")
)

// State is the lifecycle phase of an Engine.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateLoading
	StateReady
)

// String returns the upper-case name of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateBuilding:
		return "BUILDING"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Engine owns the catalog index and serves matches once ready.
// All methods are safe for concurrent use.
type Engine struct {
	source   RecordSource
	embedder ai.Embedder
	cache    *storage.Manager
	coder    geocode.Coder
	logger   *slog.Logger

	boosts        ranking.Boosts
	overFetch     int
	batchSize     int
	poolSize      int
	enrichTimeout time.Duration
	progress      io.Writer

	cacheDir       string
	noCache        bool
	withEmbeddings bool

	state   atomic.Int32
	matcher atomic.Pointer[match.Matcher]
	closed  atomic.Bool
	buildMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithCacheDir sets the directory holding the index artifacts.
func WithCacheDir(dir string) Option {
	return func(e *Engine) {
		e.cacheDir = dir
	}
}

// WithoutCache disables reading and writing index artifacts.
// Every initialization then embeds the whole catalog.
func WithoutCache() Option {
	return func(e *Engine) {
		e.noCache = true
	}
}

// WithoutEmbeddingsBlob skips the raw embeddings artifact.
func WithoutEmbeddingsBlob() Option {
	return func(e *Engine) {
		e.withEmbeddings = false
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGeocoder sets the enrichment collaborator.
func WithGeocoder(c geocode.Coder) Option {
	return func(e *Engine) {
		e.coder = c
	}
}

// WithOverFetch sets the candidate pool size as a multiple of topK.
func WithOverFetch(factor int) Option {
	return func(e *Engine) {
		e.overFetch = factor
	}
}

// WithBatchSize sets how many texts are embedded per backend call while building.
func WithBatchSize(size int) Option {
	return func(e *Engine) {
		e.batchSize = size
	}
}

// WithPoolSize sets how many embedding batches run concurrently while building.
func WithPoolSize(size int) Option {
	return func(e *Engine) {
		e.poolSize = size
	}
}

// WithEnrichTimeout bounds each geocode call.
func WithEnrichTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.enrichTimeout = d
	}
}

// WithBoosts replaces the ranking boosts.
func WithBoosts(b ranking.Boosts) Option {
	return func(e *Engine) {
		e.boosts = b
	}
}

// WithProgress reports build progress to w.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) {
		e.progress = w
	}
}

// NewEngine creates an Engine. Nothing is loaded until Init or the first Match.
func NewEngine(source RecordSource, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		source:         source,
		embedder:       embedder,
		logger:         slog.Default(),
		boosts:         ranking.DefaultBoosts(),
		overFetch:      match.DefaultOverFetch,
		batchSize:      vectorize.DefaultBatchSize,
		enrichTimeout:  match.DefaultEnrichTimeout,
		cacheDir:       DefaultCacheDir,
		withEmbeddings: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")

	if !e.noCache {
		cacheOpts := []storage.ManagerOption{storage.WithLogger(e.logger)}
		if !e.withEmbeddings {
			cacheOpts = append(cacheOpts, storage.WithoutEmbeddings())
		}
		e.cache = storage.NewManager(e.cacheDir, cacheOpts...)
	}
	return e, nil
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ready reports whether matches can be served without initializing.
func (e *Engine) Ready() bool {
	return e.matcher.Load() != nil
}

// Len returns the number of indexed records, or 0 when not ready.
func (e *Engine) Len() int {
	if m := e.matcher.Load(); m != nil {
		return m.Len()
	}
	return 0
}

// Init loads the index from cache or builds it from the record source.
// Concurrent callers wait for a single initialization. Calling Init on a
// ready engine does nothing.
func (e *Engine) Init(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.Ready() {
		return nil
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if e.Ready() {
		return nil
	}

	start := time.Now()
	m, err := e.initialize(ctx)
	if err != nil {
		e.state.Store(int32(StateEmpty))
		e.logger.Error("initialization failed", "err", err)
		return err
	}

	e.matcher.Store(m)
	e.state.Store(int32(StateReady))
	e.logger.Info("engine ready", "records", m.Len(), "elapsed", time.Since(start))
	return nil
}

func (e *Engine) initialize(ctx context.Context) (*match.Matcher, error) {
	records, err := e.loadRecords(ctx)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && e.cache.Exists() {
		e.state.Store(int32(StateLoading))
		snap, err := e.cache.Load(ctx)
		if err != nil {
			return nil, err
		}
		if snap.Index.Len() != len(records) {
			return nil, fmt.Errorf("%w: cached index has %d rows, catalog has %d records",
				core.ErrIndex, snap.Index.Len(), len(records))
		}
		return e.newMatcher(snap.Index, snap.Records)
	}

	e.state.Store(int32(StateBuilding))
	idx, err := e.build(ctx, records)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Save(ctx, &storage.Snapshot{Index: idx, Records: records}); err != nil {
			e.logger.Warn("failed to save cache, continuing with in-memory index", "err", err)
		}
	}
	return e.newMatcher(idx, records)
}

// loadRecords reads the catalog and drops invalid rows.
func (e *Engine) loadRecords(ctx context.Context) ([]core.Record, error) {
	raw, err := e.source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStartup, err)
	}

	records := make([]core.Record, 0, len(raw))
	skipped := 0
	for i := range raw {
		if err := core.ValidateRecord(&raw[i]); err != nil {
			skipped++
			e.logger.Debug("skipping invalid record", "row", i, "err", err)
			continue
		}
		records = append(records, raw[i])
	}
	if skipped > 0 {
		e.logger.Warn("skipped invalid records", "skipped", skipped, "kept", len(records))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", core.ErrStartup)
	}
	return records, nil
}

func (e *Engine) build(ctx context.Context, records []core.Record) (*index.Flat, error) {
	c := corpus.New(records)

	opts := []vectorize.Option{
		vectorize.WithBatchSize(e.batchSize),
		vectorize.WithLogger(e.logger),
	}
	if e.poolSize > 0 {
		opts = append(opts, vectorize.WithPoolSize(e.poolSize))
	}
	if e.progress != nil {
		opts = append(opts, vectorize.WithProgress(e.progress))
	}

	v, err := vectorize.New(e.embedder, opts...)
	if err != nil {
		return nil, err
	}
	defer v.Release()

	e.logger.Info("embedding catalog", "records", c.Len())
	vectors, err := v.Vectorize(ctx, c.Texts)
	if err != nil {
		return nil, err
	}

	idx, err := index.New(len(vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndex, err)
	}
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndex, err)
	}
	return idx, nil
}

func (e *Engine) newMatcher(idx *index.Flat, records []core.Record) (*match.Matcher, error) {
	return match.New(e.embedder, idx, records,
		match.WithLogger(e.logger),
		match.WithRanker(ranking.New(ranking.WithBoosts(e.boosts))),
		match.WithGeocoder(e.coder),
		match.WithOverFetch(e.overFetch),
		match.WithEnrichTimeout(e.enrichTimeout),
	)
}

// Match answers a query, initializing the engine first if needed.
func (e *Engine) Match(ctx context.Context, query string, topK int, includeEnrichment bool) (*core.MatchResponse, error) {
	if err := match.ValidateQuery(query, topK); err != nil {
		return nil, err
	}

	m := e.matcher.Load()
	if m == nil {
		if err := e.Init(ctx); err != nil {
			return nil, err
		}
		if m = e.matcher.Load(); m == nil {
			return nil, core.ErrNotReady
		}
	}
	return m.Match(ctx, query, topK, includeEnrichment)
}

// CacheStatus reports the artifacts in the cache directory.
// The status is empty when caching is disabled.
func (e *Engine) CacheStatus() storage.CacheStatus {
	if e.cache == nil {
		return storage.CacheStatus{}
	}
	return e.cache.Status()
}

// ClearCache removes the cached artifacts and drops the in-memory index, so
// the next Match rebuilds from the record source.
func (e *Engine) ClearCache() error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.matcher.Store(nil)
	e.state.Store(int32(StateEmpty))

	if e.cache == nil {
		return nil
	}
	if err := e.cache.Clear(); err != nil {
		e.logger.Error("error clearing cache", "err", err)
		return err
	}
	return nil
}

// Close releases the index and the embedder if it holds resources.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	e.matcher.Store(nil)
	e.state.Store(int32(StateEmpty))

	if closer, ok := e.embedder.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			e.logger.Error("error closing embedder", "err", err)
			return err
		}
	}
	return nil
}
