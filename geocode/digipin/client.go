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

// Package digipin is a geocode.Coder backed by a DIGIPIN HTTP service.
package digipin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/geocode"
)

const (
	// DefaultBaseURL is where a locally run DIGIPIN service listens.
	DefaultBaseURL = "http://localhost:5002"
	// DefaultTimeout bounds a single encode call.
	DefaultTimeout = 5 * time.Second

	encodePath = "/api/digipin/encode"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 64 << 10
)

// ErrBaseURLRequired indicates the client was created without a service URL.
var ErrBaseURLRequired = errors.New("digipin: base URL is required")

type encodeRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type encodeResponse struct {
	Digipin string `json:"digipin"`
}

// Client calls the encode endpoint of a DIGIPIN service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *slog.Logger
}

var _ geocode.Coder = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithRateLimit limits outgoing calls to qps requests per second with the given burst.
func WithRateLimit(qps float64, burst int) Option {
	return func(cl *Client) {
		if qps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(qps), max(1, burst))
		}
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger == nil {
			logger = slog.Default()
		}
		cl.logger = logger.With("component", "digipin-client")
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		logger:     slog.Default().With("component", "digipin-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode returns the DIGIPIN for a coordinate pair.
// All failures wrap core.ErrEnrichment.
func (c *Client) Encode(ctx context.Context, lat, lon float64) (string, error) {
	if err := geocode.ValidateCoordinates(lat, lon); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit: %w", core.ErrEnrichment, err)
		}
	}

	payload, err := json.Marshal(encodeRequest{Latitude: lat, Longitude: lon})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+encodePath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", core.ErrEnrichment, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("encode rejected", "status", resp.StatusCode, "lat", lat, "lon", lon)
		return "", fmt.Errorf("%w: unexpected status %d", core.ErrEnrichment, resp.StatusCode)
	}

	var out encodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", core.ErrEnrichment, err)
	}
	if out.Digipin == "" {
		return "", fmt.Errorf("%w: %w", core.ErrEnrichment, geocode.ErrEmptyCode)
	}
	return out.Digipin, nil
}
