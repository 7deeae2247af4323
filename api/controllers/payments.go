package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/api/middleware"
	"github.com/angelmondragon/escrowdesk/api/responses"
	"github.com/angelmondragon/escrowdesk/api/validators"
	"github.com/angelmondragon/escrowdesk/internal/fees"
	"github.com/angelmondragon/escrowdesk/internal/payments"
	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

// PaymentService is the payment flow surface the HTTP layer drives.
type PaymentService interface {
	Submit(ctx context.Context, flow *payments.Flow, cred auth.Credential, req payments.Request) (*payments.Outcome, error)
	CompletePayPal(ctx context.Context, cred auth.Credential, token, payerID string) (*payments.Outcome, error)
	CancelPayPal(ctx context.Context, cred auth.Credential, token string) error
}

type submitPaymentRequest struct {
	JobID               string          `json:"jobId"`
	VendorID            string          `json:"vendorId"`
	Amount              decimal.Decimal `json:"amount"`
	Method              string          `json:"method" validate:"required,oneof=card paypal manual"`
	PaymentMethodID     string          `json:"paymentMethodId"`
	ManualPaymentMethod string          `json:"manualPaymentMethod"`
	ReferenceNumber     string          `json:"referenceNumber" validate:"max=100"`
	Notes               string          `json:"notes" validate:"max=1000"`
}

func (p submitPaymentRequest) toRequest() payments.Request {
	req := payments.Request{
		JobID:    strings.TrimSpace(p.JobID),
		VendorID: strings.TrimSpace(p.VendorID),
		Amount:   p.Amount,
	}
	switch enums.PaymentMethod(p.Method) {
	case enums.PaymentMethodCard:
		req.Method = payments.CardMethod{PaymentMethodID: strings.TrimSpace(p.PaymentMethodID)}
	case enums.PaymentMethodPayPal:
		req.Method = payments.PayPalMethod{}
	case enums.PaymentMethodManual:
		req.Method = payments.ManualMethod{
			PaymentMethod:   enums.ManualPaymentMethod(strings.ToLower(strings.TrimSpace(p.ManualPaymentMethod))),
			ReferenceNumber: p.ReferenceNumber,
			Notes:           p.Notes,
		}
	}
	return req
}

type paypalCompleteRequest struct {
	Token   string `json:"token" validate:"required"`
	PayerID string `json:"payerId" validate:"required"`
}

type paypalCancelRequest struct {
	Token string `json:"token" validate:"required"`
}

// PaymentFees quotes the rounded fee breakdown for ?amount=.
func PaymentFees(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := validators.ParseAmount(r.URL.Query().Get("amount"), "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fees.Calculate(amount).View())
	}
}

// PaymentSubmit runs one payment attempt. Completed payments answer 201;
// PayPal answers 200 with the approval URL the browser must follow.
func PaymentSubmit(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload submitPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flow := payments.NewFlow(enums.PaymentMethod(payload.Method))
		outcome, err := svc.Submit(r.Context(), flow, middleware.CredentialFromContext(r.Context()), payload.toRequest())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if outcome.Suspended {
			responses.WriteSuccess(w, outcome)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outcome)
	}
}

// PayPalComplete captures the order the customer approved on PayPal.
func PayPalComplete(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paypalCompleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.CompletePayPal(r.Context(), middleware.CredentialFromContext(r.Context()), payload.Token, payload.PayerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outcome)
	}
}

func PayPalCancel(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paypalCancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelPayPal(r.Context(), middleware.CredentialFromContext(r.Context()), payload.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
