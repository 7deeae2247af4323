package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/escrowdesk/pkg/auth"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
	pkgstripe "github.com/angelmondragon/escrowdesk/pkg/stripe"
)

const (
	stripeProcessMethod   = "stripe"
	genericCardDecline    = "Your card could not be charged."
	cardActionRequiredMsg = "This card requires additional authentication. Please use a different card."
)

// submitCard runs create-intent, confirm and process strictly in order.
// Nothing after a failed step is attempted.
func (s *Service) submitCard(ctx context.Context, cred auth.Credential, intent *PaymentIntent, method CardMethod) (string, error) {
	created, err := s.backend.CreateStripeIntent(ctx, cred, intent.Amount, parties(intent))
	if err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithField(ctx, "payment_id", created.PaymentID), "payment.card.intent_created")

	intentID, err := pkgstripe.IntentIDFromClientSecret(created.ClientSecret)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "the payment could not be started")
	}

	confirmed, err := s.cards.Confirm(ctx, intentID, method.PaymentMethodID)
	if err != nil {
		return "", providerError(err)
	}
	if err := checkConfirmed(confirmed); err != nil {
		return "", err
	}
	intent.setReference(confirmed.ID)
	ctx = s.logg.WithField(ctx, "stripe_payment_intent", confirmed.ID)
	s.logg.Info(ctx, "payment.card.confirmed")

	if err := s.backend.ProcessPayment(ctx, cred, created.PaymentID, marketplace.ProcessPaymentRequest{
		PaymentMethod: stripeProcessMethod,
		TransactionID: confirmed.ID,
		CustomerID:    intent.CustomerID,
	}); err != nil {
		// the card is charged at this point; support reconciles from the intent id
		s.logg.Error(ctx, "payment.card.finalize_failed", err)
		return "", err
	}
	return created.PaymentID, nil
}

func checkConfirmed(pi *stripe.PaymentIntent) error {
	if pi == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "the card provider returned no payment")
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return nil
	case stripe.PaymentIntentStatusRequiresAction:
		return pkgerrors.New(pkgerrors.CodeProvider, cardActionRequiredMsg)
	}
	msg := genericCardDecline
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		msg = pi.LastPaymentError.Msg
	}
	return pkgerrors.New(pkgerrors.CodeProvider, msg).
		WithDetails(map[string]any{"status": string(pi.Status)})
}

// providerError keeps the Stripe message verbatim for card errors.
func providerError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = genericCardDecline
		}
		details := map[string]any{}
		if stripeErr.Code != "" {
			details["code"] = string(stripeErr.Code)
		}
		if stripeErr.DeclineCode != "" {
			details["declineCode"] = string(stripeErr.DeclineCode)
		}
		if stripeErr.Type == stripe.ErrorTypeCard || stripeErr.HTTPStatusCode == 402 {
			return pkgerrors.Wrap(pkgerrors.CodeProvider, err, msg).WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "the card provider is unreachable")
}

func parties(intent *PaymentIntent) marketplace.Parties {
	return marketplace.Parties{
		JobID:      intent.JobID,
		CustomerID: intent.CustomerID,
		VendorID:   intent.VendorID,
	}
}
