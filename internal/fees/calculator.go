// Package fees splits a gross job amount into platform fee, escrow fee and
// vendor net.
package fees

import "github.com/shopspring/decimal"

// CentPlaces is the minimum currency unit used when values leave the process.
const CentPlaces = 2

var (
	PlatformFeeRate = decimal.RequireFromString("0.05")
	EscrowFeeRate   = decimal.RequireFromString("0.02")
)

// IsWholeCents reports whether amount needs no rounding to be charged.
func IsWholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(CentPlaces))
}

// Breakdown is a derived view of a gross amount. Values from Calculate are exact;
// call Rounded once at the display or transmission boundary.
type Breakdown struct {
	Gross       decimal.Decimal
	PlatformFee decimal.Decimal
	EscrowFee   decimal.Decimal
	VendorNet   decimal.Decimal
}

// Calculate does not validate gross; callers reject non-positive amounts first.
func Calculate(gross decimal.Decimal) Breakdown {
	platform := gross.Mul(PlatformFeeRate)
	escrow := gross.Mul(EscrowFeeRate)
	return Breakdown{
		Gross:       gross,
		PlatformFee: platform,
		EscrowFee:   escrow,
		VendorNet:   gross.Sub(platform).Sub(escrow),
	}
}

// Rounded rounds the fees half away from zero to the cent and lets the vendor
// net absorb the remainder, so the parts always sum to the rounded gross.
func (b Breakdown) Rounded() Breakdown {
	gross := b.Gross.Round(CentPlaces)
	platform := b.PlatformFee.Round(CentPlaces)
	escrow := b.EscrowFee.Round(CentPlaces)
	return Breakdown{
		Gross:       gross,
		PlatformFee: platform,
		EscrowFee:   escrow,
		VendorNet:   gross.Sub(platform).Sub(escrow),
	}
}

// View is the JSON projection sent to the browser.
type View struct {
	Gross           string `json:"grossAmount"`
	PlatformFee     string `json:"platformFee"`
	EscrowFee       string `json:"escrowFee"`
	VendorNet       string `json:"vendorNet"`
	PlatformFeeRate string `json:"platformFeeRate"`
	EscrowFeeRate   string `json:"escrowFeeRate"`
}

// View rounds and formats the breakdown.
func (b Breakdown) View() View {
	r := b.Rounded()
	return View{
		Gross:           r.Gross.StringFixed(CentPlaces),
		PlatformFee:     r.PlatformFee.StringFixed(CentPlaces),
		EscrowFee:       r.EscrowFee.StringFixed(CentPlaces),
		VendorNet:       r.VendorNet.StringFixed(CentPlaces),
		PlatformFeeRate: PlatformFeeRate.String(),
		EscrowFeeRate:   EscrowFeeRate.String(),
	}
}
