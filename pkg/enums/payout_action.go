package enums

import "fmt"

// PayoutAction is an admin command against a payout.
type PayoutAction string

const (
	PayoutActionApprove PayoutAction = "approve"
	PayoutActionReject  PayoutAction = "reject"
	PayoutActionProcess PayoutAction = "process"
)

var validPayoutActions = []PayoutAction{
	PayoutActionApprove,
	PayoutActionReject,
	PayoutActionProcess,
}

// String implements fmt.Stringer.
func (p PayoutAction) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutAction.
func (p PayoutAction) IsValid() bool {
	for _, candidate := range validPayoutActions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutAction converts raw input into a PayoutAction.
func ParsePayoutAction(value string) (PayoutAction, error) {
	for _, candidate := range validPayoutActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout action %q", value)
}
