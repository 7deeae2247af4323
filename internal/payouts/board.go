package payouts

import (
	"sync"
	"time"

	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
)

// Board caches the last payout list fetched from the backend. It is only ever
// replaced as a whole.
type Board struct {
	mu          sync.RWMutex
	payouts     []marketplace.VendorPayout
	refreshedAt time.Time
}

func NewBoard() *Board {
	return &Board{}
}

// Snapshot returns a copy of the cached list and when it was fetched.
func (b *Board) Snapshot() ([]marketplace.VendorPayout, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]marketplace.VendorPayout, len(b.payouts))
	copy(out, b.payouts)
	return out, b.refreshedAt
}

// Find looks a payout up by id in the cached list.
func (b *Board) Find(id string) (marketplace.VendorPayout, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.payouts {
		if p.ID == id {
			return p, true
		}
	}
	return marketplace.VendorPayout{}, false
}

// Loaded reports whether the board has been filled at least once.
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.refreshedAt.IsZero()
}

func (b *Board) replace(payouts []marketplace.VendorPayout, at time.Time) {
	next := make([]marketplace.VendorPayout, len(payouts))
	copy(next, payouts)
	b.mu.Lock()
	b.payouts = next
	b.refreshedAt = at
	b.mu.Unlock()
}
