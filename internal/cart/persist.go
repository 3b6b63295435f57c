package cart

import (
	"context"
	"sync"
	"time"
)

// Persister is the durable mirror of a session's line items.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// KV is the subset of pkg/redis.Client used by RedisPersister.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisPersister stores each cart as one string value with a sliding TTL.
type RedisPersister struct {
	kv  KV
	ttl time.Duration
}

func NewRedisPersister(kv KV, ttl time.Duration) *RedisPersister {
	return &RedisPersister{kv: kv, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := p.kv.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (p *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	return p.kv.Set(ctx, key, string(data), p.ttl)
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	return p.kv.Del(ctx, key)
}

// MemoryPersister keeps carts in process memory; used when Redis is not configured.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string][]byte{}}
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	p.mu.Lock()
	p.data[key] = stored
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.data, key)
	p.mu.Unlock()
	return nil
}
