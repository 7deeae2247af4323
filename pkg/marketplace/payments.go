package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/auth"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

// Parties identifies who a payment is for.
type Parties struct {
	JobID      string
	CustomerID string
	VendorID   string
}

type partiesBody struct {
	Amount     json.Number `json:"amount"`
	JobID      string      `json:"jobId"`
	CustomerID string      `json:"customerId"`
	VendorID   string      `json:"vendorId"`
}

func newPartiesBody(amount decimal.Decimal, p Parties) partiesBody {
	return partiesBody{
		Amount:     Amount(amount),
		JobID:      p.JobID,
		CustomerID: p.CustomerID,
		VendorID:   p.VendorID,
	}
}

// StripeIntent is what the backend hands back for a card payment.
type StripeIntent struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    string `json:"paymentId"`
}

// CreateStripeIntent asks the backend to open a Stripe PaymentIntent.
func (c *Client) CreateStripeIntent(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties Parties) (*StripeIntent, error) {
	var out StripeIntent
	if err := c.do(ctx, cred, http.MethodPost, "payments.stripe.create_intent", "/payments/stripe/create-intent", newPartiesBody(amount, parties), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ClientSecret) == "" || strings.TrimSpace(out.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned an incomplete payment intent")
	}
	return &out, nil
}

// ProcessPaymentRequest finalizes a confirmed payment.
type ProcessPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
	TransactionID string `json:"transactionId"`
	CustomerID    string `json:"customerId"`
}

// ProcessPayment tells the backend the provider confirmed the payment.
func (c *Client) ProcessPayment(ctx context.Context, cred auth.Credential, paymentID string, req ProcessPaymentRequest) error {
	path := "/payments/" + url.PathEscape(paymentID) + "/process"
	return c.do(ctx, cred, http.MethodPost, "payments.process", path, req, nil)
}

// PayPalOrder carries the approval URL the customer must be redirected to.
type PayPalOrder struct {
	ApprovalURL string `json:"approvalUrl"`
}

// CreatePayPalOrder opens a PayPal order for the customer.
func (c *Client) CreatePayPalOrder(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties Parties) (*PayPalOrder, error) {
	var out PayPalOrder
	if err := c.do(ctx, cred, http.MethodPost, "payments.paypal.create", "/payments/paypal/create", newPartiesBody(amount, parties), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ApprovalURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no paypal approval url")
	}
	return &out, nil
}

// PayPalCaptureRequest completes a PayPal order after the customer approved it.
type PayPalCaptureRequest struct {
	OrderID    string `json:"orderId"`
	PayerID    string `json:"payerId"`
	JobID      string `json:"jobId"`
	CustomerID string `json:"customerId"`
}

// PaymentRef is the backend's id for a recorded payment.
type PaymentRef struct {
	PaymentID string `json:"paymentId"`
}

// CapturePayPalOrder captures an approved PayPal order.
func (c *Client) CapturePayPalOrder(ctx context.Context, cred auth.Credential, req PayPalCaptureRequest) (*PaymentRef, error) {
	var out PaymentRef
	if err := c.do(ctx, cred, http.MethodPost, "payments.paypal.capture", "/payments/paypal/capture", req, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no payment id")
	}
	return &out, nil
}

// ManualPayment describes an offline payment claim.
type ManualPayment struct {
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
}

type manualBody struct {
	partiesBody
	PaymentMethod   string `json:"paymentMethod"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// CreateManualPayment records an offline payment claim for admin review.
func (c *Client) CreateManualPayment(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties Parties, manual ManualPayment) (*PaymentRef, error) {
	body := manualBody{
		partiesBody:     newPartiesBody(amount, parties),
		PaymentMethod:   manual.PaymentMethod,
		ReferenceNumber: manual.ReferenceNumber,
		Notes:           manual.Notes,
	}
	var out PaymentRef
	if err := c.do(ctx, cred, http.MethodPost, "payments.manual.create", "/payments/manual/create", body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no payment id")
	}
	return &out, nil
}
