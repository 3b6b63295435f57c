package checkout

import (
	"context"
	"sync"
	"time"
)

// DefaultGuardTTL bounds how long an abandoned submission can block its session.
const DefaultGuardTTL = 30 * time.Second

// Guard allows one in-flight submission per key.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Locker is the subset of pkg/redis.Client used by RedisGuard.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisGuard holds the submission lock in Redis so it spans API instances.
type RedisGuard struct {
	locker Locker
	ttl    time.Duration
}

func NewRedisGuard(locker Locker, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	return &RedisGuard{locker: locker, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.locker.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.locker.Del(ctx, key)
}

// MemoryGuard is the single-process fallback.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	return &MemoryGuard{held: map[string]time.Time{}, ttl: ttl, now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if expires, ok := g.held[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.held[key] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}
