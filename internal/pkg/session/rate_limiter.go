// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLoginWindow      = 15 * time.Minute
)

type RateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client:      client,
		maxAttempts: defaultMaxLoginAttempts,
		window:      defaultLoginWindow,
	}
}

// CheckLoginAttempt counts an attempt for ip+email and reports whether it is allowed.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error) {
	key := loginKey(ip, email)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to record login attempt: %w", err)
	}
	count := incr.Val()

	// A counter without a TTL would lock the pair out forever, so the window is
	// (re)armed whenever it is missing, not only on the first attempt.
	if ttl.Val() < 0 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set login attempt window: %w", err)
		}
	}

	remaining := r.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= r.maxAttempts, remaining, nil
}

// ResetLoginAttempts resets the login attempt counter
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, email string) error {
	return r.client.Del(ctx, loginKey(ip, email)).Err()
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, email)
}
