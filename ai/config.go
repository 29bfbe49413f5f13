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

package ai

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults for a local OpenAI-compatible embedding server.
const (
	DefaultEmbeddingHost  = "http://localhost:11434/v1"
	DefaultEmbeddingModel = "all-minilm"
	DefaultBatchSize      = 128
	DefaultTimeout        = 30 * time.Second

	// anonymousToken is sent when no token is configured; local servers ignore it.
	anonymousToken = "none"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("ai config")

// Config describes how to reach the embedding model.
type Config struct {
	// EmbeddingHost is the API base URL, e.g. "http://localhost:11434/v1".
	EmbeddingHost string

	// EmbeddingModel identifies the model. An index cache is only valid for
	// the model that produced it.
	EmbeddingModel string

	APIToken string

	// BatchSize caps the texts sent per request.
	BatchSize int

	// Timeout bounds one request. Zero disables the bound.
	Timeout time.Duration
}

// ConfigOption mutates a Config.
type ConfigOption func(*Config)

func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) { c.EmbeddingHost = host }
}

func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) { c.EmbeddingModel = model }
}

func WithAPIToken(token string) ConfigOption {
	return func(c *Config) { c.APIToken = token }
}

func WithBatchSize(size int) ConfigOption {
	return func(c *Config) { c.BatchSize = size }
}

func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.Timeout = d }
}

// DefaultConfig returns the configuration for a local server on the default port.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultEmbeddingHost,
		EmbeddingModel: DefaultEmbeddingModel,
		APIToken:       anonymousToken,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize rewrites the host so it ends in exactly one "/v1" path segment,
// which OpenAI-compatible servers expect, and fills in the anonymous token.
func (c *Config) Normalize() {
	if host := strings.TrimRight(c.EmbeddingHost, "/"); host != "" {
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
		c.EmbeddingHost = host
	}
	if c.APIToken == "" {
		c.APIToken = anonymousToken
	}
}

// Validate normalizes c and reports every problem found, joined.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	switch u, err := url.Parse(c.EmbeddingHost); {
	case c.EmbeddingHost == "":
		errs = append(errs, fmt.Errorf("%w: embedding host is required", ErrInvalidConfig))
	case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, fmt.Errorf("%w: embedding host %q is not an http(s) URL", ErrInvalidConfig, c.EmbeddingHost))
	}
	if c.EmbeddingModel == "" {
		errs = append(errs, fmt.Errorf("%w: embedding model is required", ErrInvalidConfig))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
