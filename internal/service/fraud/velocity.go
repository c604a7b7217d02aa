// internal/service/fraud/velocity.go
package fraud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VelocityCounter counts events per key inside a fixed window.
type VelocityCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

var velocityScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisVelocity shares counters across instances.
type RedisVelocity struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisVelocity(client redis.UniversalClient, prefix string) *RedisVelocity {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "paysandbox:fraud:velocity"
	}
	return &RedisVelocity{client: client, prefix: prefix}
}

func (v *RedisVelocity) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}
	n, err := velocityScript.Run(ctx, v.client, []string{v.prefix + ":" + key}, windowMs).Int64()
	if err != nil {
		return 0, fmt.Errorf("velocity counter: %w", err)
	}
	return n, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryVelocity is the single-process counter used without Redis.
type MemoryVelocity struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryVelocity() *MemoryVelocity {
	return &MemoryVelocity{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (v *MemoryVelocity) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	w, ok := v.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		v.windows[key] = w
	}
	w.count++
	return w.count, nil
}
