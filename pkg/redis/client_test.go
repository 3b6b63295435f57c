package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestGetSetDelLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, found, err := client.Get(ctx, "marketplace-cart:s1"); err != nil || found {
		t.Fatalf("expected miss without error, got found=%v err=%v", found, err)
	}

	if err := client.Set(ctx, "marketplace-cart:s1", `[{"productId":1,"quantity":2}]`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.ttls["marketplace-cart:s1"] != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls["marketplace-cart:s1"])
	}

	value, found, err := client.Get(ctx, "marketplace-cart:s1")
	if err != nil || !found {
		t.Fatalf("get failed: found=%v err=%v", found, err)
	}
	if value != `[{"productId":1,"quantity":2}]` {
		t.Fatalf("unexpected value %q", value)
	}

	if err := client.Del(ctx, "marketplace-cart:s1"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, found, _ := client.Get(ctx, "marketplace-cart:s1"); found {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestGetPropagatesErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection reset")
	client := &Client{store: mock}

	if _, _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetNX(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "lock", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, got ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "lock", "1", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, got ok=%v err=%v", ok, err)
	}
}

func TestZeroClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on zero client: %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("marketplace-cart", "abc"); got != "marketplace-cart:abc" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := Key("marketplace-cart", "", " checkout ", "abc"); got != "marketplace-cart:checkout:abc" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options db=%d pool=%d", opts.DB, opts.PoolSize)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 {
		t.Fatalf("unexpected options addr=%s db=%d", opts.Addr, opts.DB)
	}
}

type mockCmdable struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
