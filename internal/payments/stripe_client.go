package payments

import (
	"context"

	pkgstripe "github.com/angelmondragon/escrowdesk/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// CardConfirmer exposes the subset of Stripe operations the card path needs.
type CardConfirmer interface {
	Confirm(ctx context.Context, intentID, paymentMethodID string) (*stripe.PaymentIntent, error)
}

type stripeClientWrapper struct{}

// NewCardConfirmer wraps the provided Stripe client so the card path can be tested.
func NewCardConfirmer(api *pkgstripe.Client) CardConfirmer {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) Confirm(ctx context.Context, intentID, paymentMethodID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	return paymentintent.Confirm(intentID, params)
}
