package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapCounter map[string]int64

func (m mapCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	m[key]++
	return m[key], nil
}

type brokenCounter struct{}

func (brokenCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestCheckAttempt(t *testing.T) {
	counter := mapCounter{}
	limiter := NewRateLimiter(counter)
	limit := Limit{Max: 3, Window: time.Minute}
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		allowed, remaining, err := limiter.CheckAttempt(ctx, "checkout", "10.0.0.1", limit)
		if err != nil || !allowed || remaining != 3-i {
			t.Fatalf("attempt %d: allowed=%v remaining=%d err=%v", i, allowed, remaining, err)
		}
	}

	allowed, remaining, _ := limiter.CheckAttempt(ctx, "checkout", "10.0.0.1", limit)
	if allowed || remaining != 0 {
		t.Fatalf("fourth attempt: allowed=%v remaining=%d", allowed, remaining)
	}

	if allowed, _, _ := limiter.CheckAttempt(ctx, "checkout", "10.0.0.2", limit); !allowed {
		t.Fatal("other subject should have its own window")
	}
	if counter["ratelimit:checkout:10.0.0.1"] != 4 {
		t.Fatalf("key layout changed: %v", counter)
	}
}

func TestCheckAttemptCounterError(t *testing.T) {
	limiter := NewRateLimiter(brokenCounter{})
	if _, _, err := limiter.CheckAttempt(context.Background(), "checkout", "ip", Limit{Max: 1, Window: time.Second}); err == nil {
		t.Fatal("expected error")
	}
}
