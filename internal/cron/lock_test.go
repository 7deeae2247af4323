package cron

import (
	"context"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, token string) (bool, error) {
	if m.values[key] != token {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) LockKey(scope, id string) string { return scope + ":" + id }

func TestRedisLockIsExclusiveUntilReleased(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "journal", 0)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	second, _ := NewRedisLock(store, "journal", time.Minute)
	ctx := context.Background()

	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.values["cron:journal"]; !held {
		t.Fatalf("non-owner release must not drop the key")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}
