package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/escrowdesk/api/middleware"
	"github.com/angelmondragon/escrowdesk/api/responses"
	"github.com/angelmondragon/escrowdesk/api/validators"
	"github.com/angelmondragon/escrowdesk/internal/payouts"
	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

// PayoutService is the admin payout surface.
type PayoutService interface {
	Refresh(ctx context.Context, cred auth.Credential) (*payouts.View, error)
	Apply(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payoutID, adminNotes string) (*payouts.View, error)
}

type payoutActionRequest struct {
	AdminNotes string `json:"adminNotes" validate:"max=2000"`
}

// AdminPayoutList always refetches from the backend.
func AdminPayoutList(svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		view, err := svc.Refresh(r.Context(), middleware.CredentialFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminPayoutAction applies approve, reject or process to one payout. The
// body is optional.
func AdminPayoutAction(svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		action, err := enums.ParsePayoutAction(strings.ToLower(chi.URLParam(r, "action")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown payout action"))
			return
		}

		var payload payoutActionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		view, err := svc.Apply(r.Context(), middleware.CredentialFromContext(r.Context()), action, chi.URLParam(r, "payoutId"), payload.AdminNotes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
