package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsThreeThenDenies(t *testing.T) {
	clock := newTestClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	limiter, err := NewRateLimiter(DefaultRateLimitConfig(), clock.Now)
	require.NoError(t, err)

	first := clock.Now()
	for i := 0; i < 3; i++ {
		decision := limiter.Allow("10.0.0.1")
		require.True(t, decision.Allowed, "attempt %d", i+1)
		assert.Equal(t, 2-i, decision.Remaining)
		clock.Advance(time.Minute)
	}

	denied := limiter.Allow("10.0.0.1")
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, first.Add(time.Hour), denied.ResetAt)

	other := limiter.Allow("10.0.0.2")
	assert.True(t, other.Allowed)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	clock := newTestClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	limiter, err := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, Window: 10 * time.Minute}, clock.Now)
	require.NoError(t, err)

	require.True(t, limiter.Allow("client").Allowed)
	clock.Advance(5 * time.Minute)
	require.True(t, limiter.Allow("client").Allowed)
	require.False(t, limiter.Allow("client").Allowed)

	// The first attempt expires exactly at the window boundary.
	clock.Advance(5 * time.Minute)
	decision := limiter.Allow("client")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.False(t, limiter.Allow("client").Allowed)
}

func TestRateLimiterEmptyIdentitySharesUnknownBucket(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, Window: time.Hour}, nil)
	require.NoError(t, err)

	assert.True(t, limiter.Allow("").Allowed)
	assert.False(t, limiter.Allow("unknown").Allowed)
}

func TestRateLimiterBoundedTable(t *testing.T) {
	clock := newTestClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	limiter, err := NewRateLimiter(RateLimitConfig{MaxAttempts: 1, Window: time.Hour, MaxIdentities: 4}, clock.Now)
	require.NoError(t, err)

	require.True(t, limiter.Allow("a").Allowed)
	require.False(t, limiter.Allow("a").Allowed)

	for i := 0; i < 20; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i))
	}
	assert.Equal(t, 4, limiter.windows.Len())
	// "a" was evicted, so it starts a fresh window.
	assert.True(t, limiter.Allow("a").Allowed)
}
