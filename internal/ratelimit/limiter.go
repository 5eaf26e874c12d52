package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited indicates the caller exhausted the window's attempts.
var ErrRateLimited = errors.New("rate limited")

// Limiter is a Redis-backed fixed-window counter keyed by scope and
// identifier (typically endpoint + client IP).
type Limiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLimiter constructs the limiter.
func NewLimiter(client *redis.Client, maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{redis: client, maxAttempts: maxAttempts, window: window}
}

// Allow counts one attempt and reports whether it is within the window
// budget. Redis being unreachable fails open with an error the caller can
// log; authentication must not hinge on limiter availability.
func (l *Limiter) Allow(ctx context.Context, scope, identifier string) error {
	key := "rl:" + scope + ":" + identifier

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("rate limiter unavailable: %w", err)
		}
	}
	if count > int64(l.maxAttempts) {
		return ErrRateLimited
	}
	return nil
}
