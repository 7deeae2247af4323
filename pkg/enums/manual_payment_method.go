package enums

import "fmt"

// ManualPaymentMethod is the offline channel a customer claims to have used.
type ManualPaymentMethod string

const (
	ManualPaymentMethodBankTransfer ManualPaymentMethod = "bank_transfer"
	ManualPaymentMethodCash         ManualPaymentMethod = "cash"
	ManualPaymentMethodCheck        ManualPaymentMethod = "check"
)

var validManualPaymentMethods = []ManualPaymentMethod{
	ManualPaymentMethodBankTransfer,
	ManualPaymentMethodCash,
	ManualPaymentMethodCheck,
}

// String implements fmt.Stringer.
func (m ManualPaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ManualPaymentMethod.
func (m ManualPaymentMethod) IsValid() bool {
	for _, candidate := range validManualPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseManualPaymentMethod converts raw input into a ManualPaymentMethod.
func ParseManualPaymentMethod(value string) (ManualPaymentMethod, error) {
	for _, candidate := range validManualPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid manual payment method %q", value)
}
