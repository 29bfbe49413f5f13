package vectorize

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/ai/mock"
	"github.com/poiesic/pinmatch/core"
)

func corpusTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = "office " + strconv.Itoa(i) + " district " + strconv.Itoa(i%7)
	}
	return texts
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestVectorize_PreservesOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDimension(32)
	v, err := New(embedder, WithBatchSize(3), WithPoolSize(4))
	require.NoError(t, err)
	defer v.Release()

	texts := corpusTexts(20)
	vectors, err := v.Vectorize(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.InDeltaSlice(t, mock.Vector(text, 32), vectors[i], 1e-6, "row %d", i)
	}
	assert.Equal(t, 7, embedder.CallCount(), "20 texts in batches of 3")
	assert.Equal(t, 20, embedder.TextsCount())
}

func TestVectorize_NormalizesVectors(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{3, 4}
		}
		return out, nil
	})
	v, err := New(embedder)
	require.NoError(t, err)
	defer v.Release()

	vectors, err := v.Vectorize(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vectors[1], 1e-6)
}

func TestVectorize_Empty(t *testing.T) {
	v, err := New(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer v.Release()

	vectors, err := v.Vectorize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestVectorize_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder().WithDimension(8)
	embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection reset")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, 8)
		}
		return out, nil
	})

	v, err := New(embedder, WithRetry(3, time.Millisecond), WithPoolSize(1))
	require.NoError(t, err)
	defer v.Release()

	vectors, err := v.Vectorize(context.Background(), corpusTexts(4))
	require.NoError(t, err)
	assert.Len(t, vectors, 4)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVectorize_PersistentFailure(t *testing.T) {
	boom := errors.New("model offline")
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	})

	v, err := New(embedder, WithRetry(2, time.Millisecond), WithBatchSize(2))
	require.NoError(t, err)
	defer v.Release()

	_, err = v.Vectorize(context.Background(), corpusTexts(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModel)
	assert.ErrorIs(t, err, boom)
}

func TestVectorize_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})

	v, err := New(embedder, WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	defer v.Release()

	_, err = v.Vectorize(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestVectorize_DimensionMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if text == "odd" {
				out[i] = []float32{1, 0, 0}
			} else {
				out[i] = []float32{1, 0}
			}
		}
		return out, nil
	})

	v, err := New(embedder)
	require.NoError(t, err)
	defer v.Release()

	_, err = v.Vectorize(context.Background(), []string{"a", "odd"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorize_ReportsProgress(t *testing.T) {
	var buf bytes.Buffer
	v, err := New(mock.NewMockEmbedder().WithDimension(4), WithProgress(&buf), WithBatchSize(5))
	require.NoError(t, err)
	defer v.Release()

	_, err = v.Vectorize(context.Background(), corpusTexts(10))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "10/10")
}

func TestVectorize_ProgressLineClosedOnFailure(t *testing.T) {
	failing := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model offline")
	})
	uneven := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = make([]float32, 2+len(text)%2)
			out[i][0] = 1
		}
		return out, nil
	})

	for name, embedder := range map[string]*mock.MockEmbedder{"batch failure": failing, "dimension mismatch": uneven} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			v, err := New(embedder, WithProgress(&buf), WithRetry(1, time.Millisecond), WithBatchSize(2))
			require.NoError(t, err)
			defer v.Release()

			_, err = v.Vectorize(context.Background(), []string{"a", "bb", "c"})
			require.Error(t, err)
			assert.True(t, strings.HasSuffix(buf.String(), "\n"), "progress output %q", buf.String())
		})
	}
}

func TestWithRetry_Invalid(t *testing.T) {
	_, err := New(mock.NewMockEmbedder(), WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
