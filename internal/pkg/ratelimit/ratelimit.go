// internal/pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter increments a key inside a fixed window that starts on first use.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// Limit is a fixed-window allowance.
type Limit struct {
	Max    int64
	Window time.Duration
}

// CheckAttempt counts one attempt by subject within scope and reports whether
// it is allowed along with the attempts left in the window.
func (r *RateLimiter) CheckAttempt(ctx context.Context, scope, subject string, limit Limit) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", scope, subject)

	count, err := r.counter.Incr(ctx, key, limit.Window)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment %s attempts: %w", scope, err)
	}

	remaining := limit.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit.Max, remaining, nil
}
