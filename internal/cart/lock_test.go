package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLockerSerializesPerKey(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "a")
	require.NoError(t, err)

	// other keys are independent
	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock, err = locker.Lock(ctx, "a")
	require.NoError(t, err)
	unlock()

	locker.mu.Lock()
	assert.Empty(t, locker.locks)
	locker.mu.Unlock()
}

func TestKeyedLockerCounter(t *testing.T) {
	locker := NewKeyedLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "k")
			if err != nil {
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestRedisLocker(t *testing.T) {
	kv := newFakeKV()
	locker := NewRedisLocker(kv, time.Second, 60*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "marketplace-cart:s")
	require.NoError(t, err)
	assert.Contains(t, kv.data, "marketplace-cart:s:lock")
	assert.Equal(t, time.Second, kv.ttls["marketplace-cart:s:lock"])

	_, err = locker.Lock(ctx, "marketplace-cart:s")
	require.ErrorIs(t, err, errLockHeld)

	unlock()
	assert.NotContains(t, kv.data, "marketplace-cart:s:lock")

	unlock, err = locker.Lock(ctx, "marketplace-cart:s")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerBackendError(t *testing.T) {
	kv := newFakeKV()
	kv.nxErr = errors.New("connection refused")
	locker := NewRedisLocker(kv, 0, 0)

	_, err := locker.Lock(context.Background(), "marketplace-cart:s")
	require.Error(t, err)
	assert.Equal(t, DefaultLockTTL, locker.ttl)
}

func TestSessionsShareRedisLock(t *testing.T) {
	kv := newFakeKV()
	h := newHarness(t, book, toy)
	sessions, err := NewSessions(h.resolver, NewRedisPersister(kv, time.Hour), NewRedisLocker(kv, time.Second, 0), nil, h.sessions.logg, nil, "")
	require.NoError(t, err)
	ctx := context.Background()

	a, err := sessions.Open(ctx, "s")
	require.NoError(t, err)
	b, err := sessions.Open(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, a.AddItem(ctx, &book, 1))
	require.NoError(t, b.AddItem(ctx, &toy, 2))

	c, err := sessions.Open(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, c.ItemQuantity(book.ID))
	assert.Equal(t, 2, c.ItemQuantity(toy.ID))
	assert.NotContains(t, kv.data, "marketplace-cart:s:lock")
}
