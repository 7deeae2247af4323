package payouts

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/enums"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
)

// Stats are aggregates over a payout list. They are derived on every call and
// never stored.
type Stats struct {
	TotalPayouts   int             `json:"totalPayouts"`
	PendingPayouts int             `json:"pendingPayouts"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
}

func ComputeStats(payouts []marketplace.VendorPayout) Stats {
	stats := Stats{
		TotalPayouts:  len(payouts),
		TotalAmount:   decimal.Zero,
		PendingAmount: decimal.Zero,
	}
	for _, p := range payouts {
		stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
		if p.Status == enums.PayoutStatusPending {
			stats.PendingPayouts++
			stats.PendingAmount = stats.PendingAmount.Add(p.Amount)
		}
	}
	return stats
}

// MarshalJSON renders amounts to the cent for display.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalPayouts   int    `json:"totalPayouts"`
		PendingPayouts int    `json:"pendingPayouts"`
		TotalAmount    string `json:"totalAmount"`
		PendingAmount  string `json:"pendingAmount"`
	}{
		TotalPayouts:   s.TotalPayouts,
		PendingPayouts: s.PendingPayouts,
		TotalAmount:    s.TotalAmount.StringFixed(2),
		PendingAmount:  s.PendingAmount.StringFixed(2),
	})
}
