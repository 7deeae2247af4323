package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/escrowdesk/api/responses"
	"github.com/angelmondragon/escrowdesk/api/validators"
	"github.com/angelmondragon/escrowdesk/pkg/db/models"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

type JournalLister interface {
	List(ctx context.Context, subjectID string, limit int) ([]models.JournalEntry, error)
}

// AdminJournal lists audit entries for ?subjectId= (a job or payout id).
func AdminJournal(svc JournalLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "journal is disabled"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("subjectId")), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}
