// Package inflight serializes work on a single subject across escrowdesk
// replicas with a short-lived redis lock.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/redis"
)

// Guard hands out one lease per subject id within a scope.
type Guard struct {
	store redis.LockStore
	ttl   time.Duration
	scope string
}

// Lease is a held lock. A zero Lease releases nothing.
type Lease struct {
	guard *Guard
	key   string
	token string
}

func NewGuard(store redis.LockStore, ttl time.Duration, scope string) (*Guard, error) {
	if store == nil {
		return nil, errors.New("lock store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, errors.New("scope is required")
	}
	return &Guard{store: store, ttl: ttl, scope: scope}, nil
}

// Acquire takes the lock for id or fails with CONFLICT when another request holds it.
func (g *Guard) Acquire(ctx context.Context, id string) (*Lease, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock subject is required")
	}
	key := g.store.LockKey(g.scope, id)
	token := uuid.NewString()
	set, err := g.store.SetNX(ctx, key, token, g.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("set lock key: %w", err), "could not acquire in-flight lock")
	}
	if !set {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a request for this item is already in progress").
			WithDetails(map[string]any{"scope": g.scope, "id": id})
	}
	return &Lease{guard: g, key: key, token: token}, nil
}

// Release drops the lock if this lease still owns it. An expired lease is a no-op.
// Cancellation of ctx is ignored so an abandoned request still frees the lock.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.guard == nil {
		return nil
	}
	if _, err := l.guard.store.CompareAndDelete(context.WithoutCancel(ctx), l.key, l.token); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// Key exposes the redis key backing the lease.
func (l *Lease) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}
