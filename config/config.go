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

// Package config loads pinmatch settings from an optional YAML file and
// PINMATCH_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/pinmatch/ai"
)

// Geocoder kinds.
const (
	GeocoderNone    = "none"
	GeocoderDigipin = "digipin"
	GeocoderGeohash = "geohash"
)

// EmbeddingConfig selects the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	APIToken    string `yaml:"api_token"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	PoolSize    int    `yaml:"pool_size"`
}

// MatchConfig tunes query handling.
type MatchConfig struct {
	TopK            int `yaml:"top_k"`
	OverFetch       int `yaml:"over_fetch"`
	EnrichTimeoutMs int `yaml:"enrich_timeout_ms"`
}

// GeocodeConfig selects the enrichment collaborator.
type GeocodeConfig struct {
	Type        string  `yaml:"type"`
	DigipinURL  string  `yaml:"digipin_url"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit"`
	Burst       int     `yaml:"burst"`
	Precision   int     `yaml:"precision"`
}

// Config is the root configuration.
type Config struct {
	Dataset    string          `yaml:"dataset"`
	CatalogDir string          `yaml:"catalog_dir"`
	CacheDir   string          `yaml:"cache_dir"`
	LogLevel   string          `yaml:"log_level"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	Match      MatchConfig     `yaml:"match"`
	Geocode    GeocodeConfig   `yaml:"geocode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Dataset:    "data/pincode.csv",
		CatalogDir: "catalog",
		CacheDir:   "cache",
		LogLevel:   "warn",
		Embedding: EmbeddingConfig{
			Host:        aiDefaults.EmbeddingHost,
			Model:       aiDefaults.EmbeddingModel,
			APIToken:    aiDefaults.APIToken,
			BatchSize:   aiDefaults.BatchSize,
			TimeoutSecs: int(aiDefaults.Timeout / time.Second),
		},
		Match: MatchConfig{
			TopK:            5,
			OverFetch:       3,
			EnrichTimeoutMs: 2000,
		},
		Geocode: GeocodeConfig{
			Type:        GeocoderNone,
			DigipinURL:  "http://localhost:5002",
			TimeoutSecs: 5,
			Precision:   7,
		},
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Dataset = getEnv("PINMATCH_DATASET", c.Dataset)
	c.CatalogDir = getEnv("PINMATCH_CATALOG_DIR", c.CatalogDir)
	c.CacheDir = getEnv("PINMATCH_CACHE_DIR", c.CacheDir)
	c.LogLevel = getEnv("PINMATCH_LOG_LEVEL", c.LogLevel)

	c.Embedding.Host = getEnv("PINMATCH_EMBEDDING_HOST", c.Embedding.Host)
	c.Embedding.Model = getEnv("PINMATCH_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.APIToken = getEnv("PINMATCH_API_TOKEN", c.Embedding.APIToken)
	c.Embedding.BatchSize = getEnvInt("PINMATCH_BATCH_SIZE", c.Embedding.BatchSize)
	c.Embedding.TimeoutSecs = getEnvInt("PINMATCH_EMBEDDING_TIMEOUT_SECS", c.Embedding.TimeoutSecs)
	c.Embedding.PoolSize = getEnvInt("PINMATCH_POOL_SIZE", c.Embedding.PoolSize)

	c.Match.TopK = getEnvInt("PINMATCH_TOP_K", c.Match.TopK)
	c.Match.OverFetch = getEnvInt("PINMATCH_OVER_FETCH", c.Match.OverFetch)
	c.Match.EnrichTimeoutMs = getEnvInt("PINMATCH_ENRICH_TIMEOUT_MS", c.Match.EnrichTimeoutMs)

	c.Geocode.Type = getEnv("PINMATCH_GEOCODER", c.Geocode.Type)
	c.Geocode.DigipinURL = getEnv("DIGIPIN_API_URL", c.Geocode.DigipinURL)
	c.Geocode.RateLimit = getEnvFloat("PINMATCH_GEOCODE_RATE_LIMIT", c.Geocode.RateLimit)
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Match.TopK < 1 {
		return fmt.Errorf("match.top_k must be positive, got %d", c.Match.TopK)
	}
	if c.Match.OverFetch < 1 {
		return fmt.Errorf("match.over_fetch must be at least 1, got %d", c.Match.OverFetch)
	}
	if c.Match.EnrichTimeoutMs < 0 {
		return fmt.Errorf("match.enrich_timeout_ms cannot be negative, got %d", c.Match.EnrichTimeoutMs)
	}
	if c.Embedding.PoolSize < 0 {
		return fmt.Errorf("embedding.pool_size cannot be negative, got %d", c.Embedding.PoolSize)
	}
	switch c.Geocode.Type {
	case GeocoderNone, GeocoderDigipin, GeocoderGeohash:
	default:
		return fmt.Errorf("geocode.type must be one of none, digipin, geohash, got %q", c.Geocode.Type)
	}
	if c.Geocode.Type == GeocoderDigipin && c.Geocode.DigipinURL == "" {
		return errors.New("geocode.digipin_url is required for the digipin geocoder")
	}
	if c.Geocode.Type == GeocoderGeohash && (c.Geocode.Precision < 1 || c.Geocode.Precision > 12) {
		return fmt.Errorf("geocode.precision must be 1-12, got %d", c.Geocode.Precision)
	}
	return c.AIConfig().Validate()
}

// AIConfig converts the embedding section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIToken(c.Embedding.APIToken),
		ai.WithBatchSize(c.Embedding.BatchSize),
		ai.WithTimeout(time.Duration(c.Embedding.TimeoutSecs)*time.Second),
	)
}

// EnrichTimeout returns the per-record geocode timeout.
func (c *Config) EnrichTimeout() time.Duration {
	return time.Duration(c.Match.EnrichTimeoutMs) * time.Millisecond
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
