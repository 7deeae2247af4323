package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/escrowdesk/internal/payouts"
	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/config"
	"github.com/angelmondragon/escrowdesk/pkg/db/models"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

var admin = auth.Credential{Token: "admin-tok", UserID: "admin-1", Role: enums.MemberRoleAdmin}

type stubPayoutService struct {
	refresh func(cred auth.Credential) (*payouts.View, error)
	apply   func(action enums.PayoutAction, id, notes string) (*payouts.View, error)
}

func (s stubPayoutService) Refresh(_ context.Context, cred auth.Credential) (*payouts.View, error) {
	return s.refresh(cred)
}

func (s stubPayoutService) Apply(_ context.Context, _ auth.Credential, action enums.PayoutAction, id, notes string) (*payouts.View, error) {
	return s.apply(action, id, notes)
}

func payoutRouter(svc PayoutService) http.Handler {
	r := chi.NewRouter()
	r.Get("/payouts", AdminPayoutList(svc, nil))
	r.Post("/payouts/{payoutId}/{action}", AdminPayoutAction(svc, nil))
	return r
}

func TestAdminPayoutList(t *testing.T) {
	svc := stubPayoutService{refresh: func(cred auth.Credential) (*payouts.View, error) {
		if cred != admin {
			t.Fatalf("credential should come from context")
		}
		return &payouts.View{Payouts: []payouts.PayoutView{}}, nil
	}}

	resp := httptest.NewRecorder()
	payoutRouter(svc).ServeHTTP(resp, authedRequest(http.MethodGet, "/payouts", "", admin))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	data := decodeData(t, resp)
	if _, ok := data["stats"]; !ok {
		t.Fatalf("expected stats in payload %v", data)
	}
}

func TestAdminPayoutActionPassesNotes(t *testing.T) {
	var gotAction enums.PayoutAction
	var gotID, gotNotes string
	svc := stubPayoutService{apply: func(action enums.PayoutAction, id, notes string) (*payouts.View, error) {
		gotAction, gotID, gotNotes = action, id, notes
		return &payouts.View{}, nil
	}}

	resp := httptest.NewRecorder()
	payoutRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/payouts/po-7/approve", `{"adminNotes":"verified bank details"}`, admin))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAction != enums.PayoutActionApprove || gotID != "po-7" || gotNotes != "verified bank details" {
		t.Fatalf("unexpected call %s %s %q", gotAction, gotID, gotNotes)
	}
}

func TestAdminPayoutActionWithoutBody(t *testing.T) {
	called := false
	svc := stubPayoutService{apply: func(action enums.PayoutAction, id, notes string) (*payouts.View, error) {
		called = true
		if notes != "" {
			t.Fatalf("expected empty notes got %q", notes)
		}
		return &payouts.View{}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/payouts/po-7/process", nil)
	resp := httptest.NewRecorder()
	payoutRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 and a call, got %d called=%v", resp.Code, called)
	}
}

func TestAdminPayoutActionUnknownAction(t *testing.T) {
	svc := stubPayoutService{apply: func(enums.PayoutAction, string, string) (*payouts.View, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}

	resp := httptest.NewRecorder()
	payoutRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/payouts/po-7/archive", "", admin))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestAdminPayoutActionStateConflict(t *testing.T) {
	svc := stubPayoutService{apply: func(enums.PayoutAction, string, string) (*payouts.View, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot approve a payout that is processed")
	}}

	resp := httptest.NewRecorder()
	payoutRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/payouts/po-7/approve", "", admin))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	code, msg := decodeErrorCode(t, resp)
	if code != string(pkgerrors.CodeStateConflict) || !strings.Contains(msg, "processed") {
		t.Fatalf("unexpected error %s %q", code, msg)
	}
}

type stubJournal struct {
	list func(subjectID string, limit int) ([]models.JournalEntry, error)
}

func (s stubJournal) List(_ context.Context, subjectID string, limit int) ([]models.JournalEntry, error) {
	return s.list(subjectID, limit)
}

func TestAdminJournal(t *testing.T) {
	svc := stubJournal{list: func(subjectID string, limit int) ([]models.JournalEntry, error) {
		if subjectID != "po-7" || limit != 10 {
			t.Fatalf("unexpected args %s %d", subjectID, limit)
		}
		return []models.JournalEntry{{SubjectID: "po-7", Action: "approve"}}, nil
	}}

	resp := httptest.NewRecorder()
	AdminJournal(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/journal?subjectId=po-7&limit=10", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	entries, ok := decodeData(t, resp)["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one entry")
	}
}

func TestAdminJournalDisabled(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminJournal(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/journal?subjectId=po-7", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{}, "journal_db": nil}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
