package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

// PayoutPayment is one escrow release that contributes to a payout.
type PayoutPayment struct {
	JobID  string          `json:"jobId"`
	Amount decimal.Decimal `json:"amount"`
}

// VendorPayout is the backend's view of a payout request.
type VendorPayout struct {
	ID          string             `json:"id"`
	VendorID    string             `json:"vendorId"`
	Amount      decimal.Decimal    `json:"amount"`
	Method      enums.PayoutMethod `json:"method"`
	Description string             `json:"description,omitempty"`
	AdminNotes  string             `json:"adminNotes,omitempty"`
	Status      enums.PayoutStatus `json:"status"`
	RequestedAt time.Time          `json:"requestedAt"`
	ProcessedAt *time.Time         `json:"processedAt,omitempty"`
	Payments    []PayoutPayment    `json:"payments,omitempty"`
}

type payoutListEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Payouts json.RawMessage `json:"payouts"`
}

// ListVendorPayouts returns every payout visible to the admin credential.
func (c *Client) ListVendorPayouts(ctx context.Context, cred auth.Credential) ([]VendorPayout, error) {
	var raw json.RawMessage
	if err := c.do(ctx, cred, http.MethodGet, "vendor_payouts.list", "/vendor-payouts/admin/all", nil, &raw); err != nil {
		return nil, err
	}
	payouts, err := decodePayoutList(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode vendor payouts")
	}
	for i := range payouts {
		payouts[i].Status = enums.PayoutStatus(strings.ToLower(strings.TrimSpace(string(payouts[i].Status))))
		payouts[i].Method = enums.PayoutMethod(strings.ToLower(strings.TrimSpace(string(payouts[i].Method))))
	}
	return payouts, nil
}

// decodePayoutList accepts a bare array or an array under data/payouts.
func decodePayoutList(raw json.RawMessage) ([]VendorPayout, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []VendorPayout{}, nil
	}
	if trimmed[0] == '{' {
		var env payoutListEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		switch {
		case len(env.Data) > 0:
			return decodePayoutList(env.Data)
		case len(env.Payouts) > 0:
			return decodePayoutList(env.Payouts)
		}
		return []VendorPayout{}, nil
	}
	out := []VendorPayout{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type adminNotesBody struct {
	AdminNotes string `json:"adminNotes"`
}

// ApplyPayoutAction posts one admin action for the payout.
func (c *Client) ApplyPayoutAction(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payoutID, adminNotes string) error {
	if !action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payout action")
	}
	path := "/vendor-payouts/admin/" + url.PathEscape(payoutID) + "/" + action.String()
	return c.do(ctx, cred, http.MethodPost, "vendor_payouts."+action.String(), path, adminNotesBody{AdminNotes: adminNotes}, nil)
}
