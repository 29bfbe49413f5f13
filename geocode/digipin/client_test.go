package digipin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/geocode"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	assert.ErrorIs(t, err, ErrBaseURLRequired)
}

func TestNew_NilLogger(t *testing.T) {
	var c *Client
	require.NotPanics(t, func() {
		var err error
		c, err = New("http://localhost:5002", WithLogger(nil))
		require.NoError(t, err)
	})
	assert.NotNil(t, c.logger)
}

func TestEncode_Success(t *testing.T) {
	var got encodeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/digipin/encode", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"digipin":"4P3-JK8-52C9"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	code, err := c.Encode(context.Background(), 12.9352, 77.6245)
	require.NoError(t, err)
	assert.Equal(t, "4P3-JK8-52C9", code)
	assert.Equal(t, encodeRequest{Latitude: 12.9352, Longitude: 77.6245}, got)
}

func TestEncode_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"empty code", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"digipin":""}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, err := New(srv.URL)
			require.NoError(t, err)

			_, err = c.Encode(context.Background(), 17.3, 78.4)
			assert.ErrorIs(t, err, core.ErrEnrichment)
		})
	}
}

func TestEncode_InvalidCoordinates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Encode(context.Background(), 91, 0)
	assert.ErrorIs(t, err, core.ErrEnrichment)
	assert.ErrorIs(t, err, geocode.ErrInvalidCoordinates)
	assert.Zero(t, calls.Load())
}

func TestEncode_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Encode(context.Background(), 12.9, 77.6)
	assert.ErrorIs(t, err, core.ErrEnrichment)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEncode_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"digipin":"X"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithRateLimit(1, 1), WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Encode(context.Background(), 1, 1)
	require.NoError(t, err)

	// The bucket is empty and the next token is a second away.
	_, err = c.Encode(context.Background(), 1, 1)
	assert.ErrorIs(t, err, core.ErrEnrichment)
	assert.Equal(t, int32(1), calls.Load())
}
