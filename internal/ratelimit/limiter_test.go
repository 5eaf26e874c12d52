package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, maxAttempts int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client, maxAttempts, window), mr
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), "login", "10.0.0.1"))
	}
	assert.ErrorIs(t, limiter.Allow(context.Background(), "login", "10.0.0.1"), ErrRateLimited)
}

func TestLimiterIsolatesScopesAndClients(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, limiter.Allow(context.Background(), "login", "10.0.0.1"))
	require.ErrorIs(t, limiter.Allow(context.Background(), "login", "10.0.0.1"), ErrRateLimited)

	// A different client and a different scope each get their own budget.
	assert.NoError(t, limiter.Allow(context.Background(), "login", "10.0.0.2"))
	assert.NoError(t, limiter.Allow(context.Background(), "register", "10.0.0.1"))
}

func TestLimiterWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, limiter.Allow(context.Background(), "login", "10.0.0.1"))
	require.ErrorIs(t, limiter.Allow(context.Background(), "login", "10.0.0.1"), ErrRateLimited)

	mr.FastForward(time.Minute + time.Second)

	assert.NoError(t, limiter.Allow(context.Background(), "login", "10.0.0.1"))
}

func TestLimiterReportsUnavailableRedis(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	err := limiter.Allow(context.Background(), "login", "10.0.0.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}
