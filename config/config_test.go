package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pinmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
dataset: /data/offices.csv
cache_dir: /var/cache/pinmatch
embedding:
  host: http://embed:8080
  model: nomic-embed-text
match:
  top_k: 10
geocode:
  type: geohash
  precision: 6
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/offices.csv", cfg.Dataset)
	assert.Equal(t, "/var/cache/pinmatch", cfg.CacheDir)
	assert.Equal(t, "http://embed:8080", cfg.Embedding.Host)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 10, cfg.Match.TopK)
	assert.Equal(t, 3, cfg.Match.OverFetch, "unset keys keep defaults")
	assert.Equal(t, GeocoderGeohash, cfg.Geocode.Type)
	assert.Equal(t, 6, cfg.Geocode.Precision)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "match:\n  top_k: 10\n")
	t.Setenv("PINMATCH_TOP_K", "7")
	t.Setenv("PINMATCH_CACHE_DIR", "/tmp/other")
	t.Setenv("PINMATCH_EMBEDDING_MODEL", "all-minilm-l12")
	t.Setenv("PINMATCH_BATCH_SIZE", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Match.TopK)
	assert.Equal(t, "/tmp/other", cfg.CacheDir)
	assert.Equal(t, "all-minilm-l12", cfg.Embedding.Model)
	assert.Equal(t, 128, cfg.Embedding.BatchSize, "unparseable values are ignored")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "match: [unbalanced"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "match:\n  top_k: 0\n"))
	assert.ErrorContains(t, err, "top_k")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"over fetch", func(c *Config) { c.Match.OverFetch = 0 }, "over_fetch"},
		{"enrich timeout", func(c *Config) { c.Match.EnrichTimeoutMs = -1 }, "enrich_timeout_ms"},
		{"pool size", func(c *Config) { c.Embedding.PoolSize = -2 }, "pool_size"},
		{"unknown geocoder", func(c *Config) { c.Geocode.Type = "maps" }, "geocode.type"},
		{"digipin without url", func(c *Config) {
			c.Geocode.Type = GeocoderDigipin
			c.Geocode.DigipinURL = ""
		}, "digipin_url"},
		{"geohash precision", func(c *Config) {
			c.Geocode.Type = GeocoderGeohash
			c.Geocode.Precision = 13
		}, "precision"},
		{"embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding model is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Host = "http://embed:8080"
	cfg.Embedding.TimeoutSecs = 12

	aiCfg := cfg.AIConfig()
	assert.Equal(t, "http://embed:8080", aiCfg.EmbeddingHost)
	assert.Equal(t, 12*time.Second, aiCfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.EnrichTimeout())
}
