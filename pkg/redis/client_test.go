package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/escrowdesk/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXAndCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("payout", "po_1")

	ok, err := client.SetNX(ctx, key, "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire should win: ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("second acquire should lose: ok=%v err=%v", ok, err)
	}
	if mock.ttl[key] != time.Minute {
		t.Fatalf("expected ttl recorded, got %v", mock.ttl[key])
	}

	deleted, err := client.CompareAndDelete(ctx, key, "owner-b")
	if err != nil {
		t.Fatalf("compare and delete: %v", err)
	}
	if deleted {
		t.Fatalf("foreign token must not release the lock")
	}
	deleted, err = client.CompareAndDelete(ctx, key, "owner-a")
	if err != nil || !deleted {
		t.Fatalf("owner should release: deleted=%v err=%v", deleted, err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after release, got %v", err)
	}
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.PayPalKey("EC-123")

	if err := client.Set(ctx, key, `{"jobId":"job-1"}`, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil || value != `{"jobId":"job-1"}` {
		t.Fatalf("get: %q %v", value, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from empty client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("payout", "po_1"); got != "ed:lock:payout:po_1" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.PayPalKey("EC-9"); got != "ed:paypal:EC-9" {
		t.Fatalf("unexpected paypal key %s", got)
	}
	if got := client.IdempotencyKey("u1|POST|/api/v1/payments", "k-1"); got != "ed:idem:u1|POST|/api/v1/payments:k-1" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("payment", ""); got != "ed:lock:payment" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/2", PoolSize: 4})
	if err != nil {
		t.Fatalf("options from url: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "secret" || opts.PoolSize != 4 {
		t.Fatalf("unexpected url options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
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
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected eval arguments"))
	}
	if m.data[keys[0]] == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
