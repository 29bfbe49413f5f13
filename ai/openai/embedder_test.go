package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/ai"
	"github.com/poiesic/pinmatch/core"
)

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(&ai.Config{EmbeddingHost: "http://localhost:11434"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "embedding model is required")
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig(
		ai.WithEmbeddingHost("http://localhost:1"),
		ai.WithEmbeddingModel("nomic-embed-text"),
	))
	require.NoError(t, err)
	assert.NotNil(t, provider.Embedder())
	assert.Equal(t, "nomic-embed-text", provider.Model())
	assert.NoError(t, provider.Close())
	assert.NoError(t, provider.Close())
}

func TestEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(srv.URL)))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "koramangala")
	assert.ErrorIs(t, err, core.ErrModel)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestEmbedder_EmptyBatch(t *testing.T) {
	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost("http://localhost:1")))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}
