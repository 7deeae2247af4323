// Package payments runs a customer's payment submission against the chosen
// provider and the marketplace backend.
package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/internal/inflight"
	"github.com/angelmondragon/escrowdesk/internal/journal"
	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeSuspended = "suspended"
)

// Backend is the slice of the marketplace API the payment flow calls.
type Backend interface {
	CreateStripeIntent(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties marketplace.Parties) (*marketplace.StripeIntent, error)
	ProcessPayment(ctx context.Context, cred auth.Credential, paymentID string, req marketplace.ProcessPaymentRequest) error
	CreatePayPalOrder(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties marketplace.Parties) (*marketplace.PayPalOrder, error)
	CapturePayPalOrder(ctx context.Context, cred auth.Credential, req marketplace.PayPalCaptureRequest) (*marketplace.PaymentRef, error)
	CreateManualPayment(ctx context.Context, cred auth.Credential, amount decimal.Decimal, parties marketplace.Parties, manual marketplace.ManualPayment) (*marketplace.PaymentRef, error)
}

// Locker serializes submissions for the same customer and job.
type Locker interface {
	Acquire(ctx context.Context, id string) (*inflight.Lease, error)
}

// Metrics counts submissions by method and outcome.
type Metrics interface {
	IncSubmission(method, outcome string)
}

// Outcome is what a submission hands back to the caller.
type Outcome struct {
	Intent      PaymentIntent   `json:"intent"`
	PaymentID   string          `json:"paymentId,omitempty"`
	State       enums.FlowState `json:"state"`
	Suspended   bool            `json:"suspended,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Backend       Backend
	Cards         CardConfirmer
	Correlations  CorrelationStore
	Locks         Locker
	Journal       journal.Recorder
	Metrics       Metrics
	Logger        *logger.Logger
	ManualMethods []string
}

// Service dispatches submissions to the card, PayPal or manual path.
type Service struct {
	backend       Backend
	cards         CardConfirmer
	correlations  CorrelationStore
	locks         Locker
	journal       journal.Recorder
	metrics       Metrics
	logg          *logger.Logger
	manualMethods map[enums.ManualPaymentMethod]struct{}
	now           func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Backend == nil {
		return nil, errors.New("marketplace backend is required")
	}
	if params.Correlations == nil {
		return nil, errors.New("paypal correlation store is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	manual := map[enums.ManualPaymentMethod]struct{}{}
	for _, raw := range params.ManualMethods {
		method, err := enums.ParseManualPaymentMethod(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		manual[method] = struct{}{}
	}
	if len(manual) == 0 {
		return nil, errors.New("at least one manual payment method is required")
	}

	recorder := params.Journal
	if recorder == nil {
		recorder = journal.Discard{}
	}

	return &Service{
		backend:       params.Backend,
		cards:         params.Cards,
		correlations:  params.Correlations,
		locks:         params.Locks,
		journal:       recorder,
		metrics:       params.Metrics,
		logg:          params.Logger,
		manualMethods: manual,
		now:           time.Now,
	}, nil
}

// Submit runs one payment attempt on flow. Validation happens before any
// network call; any failure leaves the intent failed and the flow in failure
// with the triggering message. PayPal attempts return Suspended with the
// approval URL and leave the intent initiated. Nothing is retried.
func (s *Service) Submit(ctx context.Context, flow *Flow, cred auth.Credential, req Request) (*Outcome, error) {
	if flow == nil {
		flow = NewFlow(enums.PaymentMethodCard)
	}
	intent := newIntent(req, cred.UserID)
	if err := flow.begin(intent); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(s.logg.WithJobID(ctx, req.JobID), map[string]any{
		"payment_method": intent.Method.String(),
		"customer_id":    intent.CustomerID,
	})

	if err := s.validate(cred.UserID, req); err != nil {
		return nil, s.fail(ctx, flow, intent, err)
	}

	lease, err := s.acquire(ctx, intent)
	if err != nil {
		return nil, s.fail(ctx, flow, intent, err)
	}
	defer s.release(ctx, lease)

	s.logg.Info(ctx, "payment.submit.started")

	switch m := req.Method.(type) {
	case CardMethod:
		paymentID, err := s.submitCard(ctx, cred, intent, m)
		if err != nil {
			return nil, s.fail(ctx, flow, intent, err)
		}
		return s.succeed(ctx, flow, intent, paymentID), nil

	case PayPalMethod:
		return s.submitPayPal(ctx, flow, cred, intent)

	case ManualMethod:
		ref, err := s.backend.CreateManualPayment(ctx, cred, intent.Amount, parties(intent), marketplace.ManualPayment{
			PaymentMethod:   m.PaymentMethod.String(),
			ReferenceNumber: strings.TrimSpace(m.ReferenceNumber),
			Notes:           strings.TrimSpace(m.Notes),
		})
		if err != nil {
			return nil, s.fail(ctx, flow, intent, err)
		}
		return s.succeed(ctx, flow, intent, ref.PaymentID), nil
	}

	return nil, s.fail(ctx, flow, intent, invalid("method", "unsupported payment method"))
}

func (s *Service) submitPayPal(ctx context.Context, flow *Flow, cred auth.Credential, intent *PaymentIntent) (*Outcome, error) {
	order, err := s.backend.CreatePayPalOrder(ctx, cred, intent.Amount, parties(intent))
	if err != nil {
		return nil, s.fail(ctx, flow, intent, err)
	}

	token, err := orderTokenFromApprovalURL(order.ApprovalURL)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment.paypal.untracked_order")
	} else {
		intent.setReference(token)
		if err := s.correlations.Save(ctx, PayPalCorrelation{
			Token:      token,
			JobID:      intent.JobID,
			CustomerID: intent.CustomerID,
			VendorID:   intent.VendorID,
			Amount:     intent.Amount,
			CreatedAt:  s.now().UTC(),
		}); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "paypal_token", token), "payment.paypal.correlation_failed", err)
		}
	}

	flow.suspend(order.ApprovalURL)
	s.logg.Info(ctx, "payment.paypal.redirect")
	s.count(intent.Method, outcomeSuspended)
	s.journal.Record(ctx, journalEntry(intent, enums.JournalOutcomeSuspended, ""))

	return &Outcome{
		Intent:      *intent,
		State:       flow.State(),
		Suspended:   true,
		RedirectURL: order.ApprovalURL,
	}, nil
}

// CompletePayPal captures an order after the customer returns from PayPal.
// A failed capture keeps the correlation so the customer can retry.
func (s *Service) CompletePayPal(ctx context.Context, cred auth.Credential, token, payerID string) (*Outcome, error) {
	token = strings.TrimSpace(token)
	payerID = strings.TrimSpace(payerID)
	if token == "" {
		return nil, invalid("token", "paypal token is required")
	}
	if payerID == "" {
		return nil, invalid("payerId", "paypal payer id is required")
	}

	record, err := s.correlations.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if record.CustomerID != cred.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "this PayPal checkout belongs to another customer")
	}

	intent := &PaymentIntent{
		JobID:             record.JobID,
		CustomerID:        record.CustomerID,
		VendorID:          record.VendorID,
		Amount:            record.Amount,
		Method:            enums.PaymentMethodPayPal,
		ProviderReference: token,
		Status:            enums.PaymentIntentStatusInitiated,
	}
	flow := &Flow{state: enums.FlowStateSubmitting, method: enums.PaymentMethodPayPal, intent: intent}
	ctx = s.logg.WithFields(s.logg.WithJobID(ctx, record.JobID), map[string]any{
		"payment_method": enums.PaymentMethodPayPal.String(),
		"paypal_token":   token,
	})

	lease, err := s.acquire(ctx, intent)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	ref, err := s.backend.CapturePayPalOrder(ctx, cred, marketplace.PayPalCaptureRequest{
		OrderID:    token,
		PayerID:    payerID,
		JobID:      record.JobID,
		CustomerID: record.CustomerID,
	})
	if err != nil {
		return nil, s.fail(ctx, flow, intent, err)
	}

	if err := s.correlations.Delete(ctx, token); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment.paypal.correlation_cleanup_failed")
	}
	return s.succeed(ctx, flow, intent, ref.PaymentID), nil
}

// CancelPayPal forgets a pending PayPal checkout the customer walked away from.
func (s *Service) CancelPayPal(ctx context.Context, cred auth.Credential, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token", "paypal token is required")
	}
	record, err := s.correlations.Load(ctx, token)
	if err != nil {
		return err
	}
	if record.CustomerID != cred.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "this PayPal checkout belongs to another customer")
	}
	if err := s.correlations.Delete(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not cancel PayPal checkout")
	}
	s.logg.Info(s.logg.WithJobID(ctx, record.JobID), "payment.paypal.cancelled")
	return nil
}

func (s *Service) acquire(ctx context.Context, intent *PaymentIntent) (*inflight.Lease, error) {
	if s.locks == nil {
		return nil, nil
	}
	return s.locks.Acquire(ctx, intent.CustomerID+":"+intent.JobID)
}

func (s *Service) release(ctx context.Context, lease *inflight.Lease) {
	if err := lease.Release(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment.lock.release_failed")
	}
}

func (s *Service) succeed(ctx context.Context, flow *Flow, intent *PaymentIntent, paymentID string) *Outcome {
	intent.succeed()
	flow.succeed()
	s.logg.Info(s.logg.WithField(ctx, "payment_id", paymentID), "payment.submit.succeeded")
	s.count(intent.Method, outcomeSuccess)
	s.journal.Record(ctx, journalEntry(intent, enums.JournalOutcomeSucceeded, ""))
	return &Outcome{
		Intent:    *intent,
		PaymentID: paymentID,
		State:     flow.State(),
	}
}

// fail marks intent and flow as failed and returns err unchanged so the
// caller sees the triggering message verbatim.
func (s *Service) fail(ctx context.Context, flow *Flow, intent *PaymentIntent, err error) error {
	msg := pkgerrors.MessageOf(err)
	intent.fail(msg)
	flow.fail(msg)

	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		s.logg.Warn(s.logg.WithField(ctx, "reason", msg), "payment.submit.failed")
	} else {
		s.logg.Error(ctx, "payment.submit.failed", err)
	}
	s.count(intent.Method, outcomeFailure)
	s.journal.Record(ctx, journalEntry(intent, enums.JournalOutcomeFailed, msg))
	return err
}

func (s *Service) count(method enums.PaymentMethod, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSubmission(method.String(), outcome)
}

func journalEntry(intent *PaymentIntent, outcome enums.JournalOutcome, message string) journal.Entry {
	amount := intent.Amount
	action := intent.Method.String()
	if action == "" {
		action = "unknown"
	}
	return journal.Entry{
		Kind:      enums.JournalKindPayment,
		SubjectID: intent.JobID,
		ActorID:   intent.CustomerID,
		Action:    action,
		Outcome:   outcome,
		Message:   message,
		Amount:    &amount,
	}
}
