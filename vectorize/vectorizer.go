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

package vectorize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/pinmatch/ai"
	"github.com/poiesic/pinmatch/core"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 128

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Vectorizer embeds corpora in batches on a worker pool.
type Vectorizer struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	retry     backoff
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Vectorizer.
type Option func(*Vectorizer) error

// WithPoolSize sets the number of batches embedded concurrently.
func WithPoolSize(size int) Option {
	return func(v *Vectorizer) error {
		if size < 1 {
			size = 1
		}
		if v.pool != nil {
			v.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		v.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(size int) Option {
	return func(v *Vectorizer) error {
		if size < 1 {
			size = 1
		}
		v.batchSize = size
		return nil
	}
}

// WithRetry sets how often a failed batch is attempted and the initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(v *Vectorizer) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		v.retry.attempts = maxAttempts
		v.retry.baseDelay = baseDelay
		return nil
	}
}

// WithProgress writes a progress line to w while a corpus is embedded.
func WithProgress(w io.Writer) Option {
	return func(v *Vectorizer) error {
		v.progress = w
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vectorizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
		return nil
	}
}

// New creates a Vectorizer around embedder. Call Release when done.
func New(embedder ai.Embedder, opts ...Option) (*Vectorizer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	v := &Vectorizer{
		embedder:  embedder,
		pool:      pool,
		batchSize: DefaultBatchSize,
		retry:     backoff{attempts: defaultMaxAttempts, baseDelay: defaultRetryBaseDelay},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(v); optErr != nil {
			v.Release()
			return nil, optErr
		}
	}
	v.logger = v.logger.With("component", "vectorizer")
	v.retry.logger = v.logger

	return v, nil
}

// Vectorize embeds texts and returns one unit-length vector per text, in input order.
// All vectors share one dimension. The first batch failure cancels the rest and is
// returned wrapped with core.ErrModel.
func (v *Vectorizer) Vectorize(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tracker *Progress
	if v.progress != nil {
		tracker = NewProgress(v.progress, len(texts), v.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	results := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	batches := 0
	for start := 0; start < len(texts); start += v.batchSize {
		end := min(start+v.batchSize, len(texts))
		batches++

		wg.Add(1)
		submitErr := v.pool.Submit(func() {
			defer wg.Done()
			if err := v.embedBatch(ctx, start, texts[start:end], results[start:end]); err != nil {
				fail(fmt.Errorf("batch [%d:%d]: %w", start, end, err))
				return
			}
			if tracker != nil {
				tracker.Add(end - start)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		v.logger.Error("vectorization failed", "texts", len(texts), "err", firstErr)
		return nil, fmt.Errorf("%w: %w", core.ErrModel, firstErr)
	}

	dim := len(results[0])
	for i, vec := range results {
		if len(vec) == 0 || len(vec) != dim {
			return nil, fmt.Errorf("%w: %w: row %d has %d dimensions, expected %d",
				core.ErrModel, ErrDimensionMismatch, i, len(vec), dim)
		}
	}

	v.logger.Info("vectorized corpus", "texts", len(texts), "batches", batches, "dim", dim)
	return results, nil
}

// embedBatch embeds one batch with retry and writes normalized vectors into out.
func (v *Vectorizer) embedBatch(ctx context.Context, offset int, texts []string, out [][]float32) error {
	var vectors [][]float32
	batch := fmt.Sprintf("%d:%d", offset, offset+len(texts))
	err := v.retry.retry(ctx, batch, func(ctx context.Context) error {
		var err error
		vectors, err = v.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", v.retry.attempts, err)
	}

	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(texts), len(vectors))
	}

	for i := range vectors {
		out[i] = NormalizeVector(vectors[i])
	}
	return nil
}

// Release stops the worker pool.
func (v *Vectorizer) Release() {
	if v.pool != nil {
		v.pool.Release()
	}
}
