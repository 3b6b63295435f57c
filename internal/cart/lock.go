package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/storefront/pkg/redis"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a session.
	DefaultLockTTL  = 5 * time.Second
	// DefaultLockWait is how long a mutation waits for another request on the same session.
	DefaultLockWait = 3 * time.Second

	lockPollInterval = 25 * time.Millisecond
)

var errLockHeld = errors.New("cart session locked")

// Locker serializes mutations of one session's cart across Store instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedLocker is an in-process Locker; one per Sessions.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: map[string]*keyedLock{}}
}

func (k *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

func (k *KeyedLocker) release(key string, l *keyedLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// LockKV is the subset of pkg/redis.Client used by RedisLocker.
type LockKV interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker holds a SET NX lock per session so API instances sharing Redis
// serialize their writes to the same cart.
type RedisLocker struct {
	kv   LockKV
	ttl  time.Duration
	wait time.Duration
}

func NewRedisLocker(kv LockKV, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &RedisLocker{kv: kv, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := redis.Key(key, "lock")
	token := uuid.NewString()

	backoff := retry.WithMaxDuration(l.wait, retry.NewConstant(lockPollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.kv.SetNX(ctx, lockKey, token, l.ttl)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockKey, err)
	}
	return func() {
		// the holder may already have expired; the TTL bounds the overlap
		_ = l.kv.Del(context.WithoutCancel(ctx), lockKey)
	}, nil
}
