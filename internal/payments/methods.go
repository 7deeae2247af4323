package payments

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/internal/fees"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

// Method is the provider-specific part of a submission. The set of
// implementations is closed: CardMethod, PayPalMethod and ManualMethod.
type Method interface {
	Kind() enums.PaymentMethod
	isMethod()
}

// CardMethod carries the Stripe payment method captured by the card form.
type CardMethod struct {
	PaymentMethodID string
}

// PayPalMethod needs nothing up front; the customer approves on PayPal.
type PayPalMethod struct{}

// ManualMethod is an offline payment claim reviewed by an admin.
type ManualMethod struct {
	PaymentMethod   enums.ManualPaymentMethod
	ReferenceNumber string
	Notes           string
}

func (CardMethod) Kind() enums.PaymentMethod   { return enums.PaymentMethodCard }
func (PayPalMethod) Kind() enums.PaymentMethod { return enums.PaymentMethodPayPal }
func (ManualMethod) Kind() enums.PaymentMethod { return enums.PaymentMethodManual }

func (CardMethod) isMethod()   {}
func (PayPalMethod) isMethod() {}
func (ManualMethod) isMethod() {}

// Request is one payment submission. The customer comes from the credential.
type Request struct {
	JobID    string
	VendorID string
	Amount   decimal.Decimal
	Method   Method
}

type validationDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func invalid(field, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, reason).
		WithDetails([]validationDetail{{Field: field, Reason: reason}})
}

// validate runs every precondition that can be checked without the network.
func (s *Service) validate(customerID string, req Request) error {
	if strings.TrimSpace(customerID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing customer identity")
	}
	if strings.TrimSpace(req.JobID) == "" {
		return invalid("jobId", "job id is required")
	}
	if strings.TrimSpace(req.VendorID) == "" {
		return invalid("vendorId", "vendor id is required")
	}
	if !req.Amount.IsPositive() {
		return invalid("amount", "amount must be greater than zero")
	}
	if !fees.IsWholeCents(req.Amount) {
		return invalid("amount", "amount cannot have more than two decimal places")
	}

	switch m := req.Method.(type) {
	case CardMethod:
		if s.cards == nil {
			return pkgerrors.New(pkgerrors.CodeDependency, "card payments are not available")
		}
		if strings.TrimSpace(m.PaymentMethodID) == "" {
			return invalid("paymentMethodId", "card details are required")
		}
	case PayPalMethod:
	case ManualMethod:
		if strings.TrimSpace(string(m.PaymentMethod)) == "" {
			return invalid("paymentMethod", "payment method is required")
		}
		if !s.manualAllowed(m.PaymentMethod) {
			return invalid("paymentMethod", "unsupported manual payment method")
		}
	case nil:
		return invalid("method", "payment method is required")
	default:
		return invalid("method", "unsupported payment method")
	}
	return nil
}

func (s *Service) manualAllowed(method enums.ManualPaymentMethod) bool {
	if !method.IsValid() {
		return false
	}
	_, ok := s.manualMethods[method]
	return ok
}
