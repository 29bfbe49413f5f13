package geohash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/core"
)

func TestNew_Precision(t *testing.T) {
	for _, p := range []int{0, -1, 13} {
		_, err := New(p)
		assert.ErrorIs(t, err, ErrInvalidPrecision, "precision %d", p)
	}

	c, err := New(DefaultPrecision)
	require.NoError(t, err)
	assert.Equal(t, DefaultPrecision, c.Precision())
}

func TestEncode(t *testing.T) {
	c, err := New(5)
	require.NoError(t, err)

	// Koramangala, Bangalore
	code, err := c.Encode(context.Background(), 12.9352, 77.6245)
	require.NoError(t, err)
	assert.Len(t, code, 5)
	assert.Equal(t, "tdr1w", code)

	again, err := c.Encode(context.Background(), 12.9352, 77.6245)
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestEncode_PrefixesAgree(t *testing.T) {
	short, err := New(4)
	require.NoError(t, err)
	long, err := New(9)
	require.NoError(t, err)

	a, err := short.Encode(context.Background(), 28.6315, 77.2167)
	require.NoError(t, err)
	b, err := long.Encode(context.Background(), 28.6315, 77.2167)
	require.NoError(t, err)
	assert.Equal(t, a, b[:4])
}

func TestEncode_Errors(t *testing.T) {
	c, err := New(DefaultPrecision)
	require.NoError(t, err)

	_, err = c.Encode(context.Background(), 0, 181)
	assert.ErrorIs(t, err, core.ErrEnrichment)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Encode(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
