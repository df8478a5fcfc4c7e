package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
	}

	res, err := l.Allow(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// Otra key no comparte ventana.
	res, err = l.Allow(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNoopLimiter(t *testing.T) {
	res, err := NoopLimiter{}.Allow(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
