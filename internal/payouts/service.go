// Package payouts moves vendor payouts through admin approval. The backend
// owns every payout; this package gates actions by status and keeps a
// refetched snapshot for display.
package payouts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/escrowdesk/internal/inflight"
	"github.com/angelmondragon/escrowdesk/internal/journal"
	"github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
	"github.com/angelmondragon/escrowdesk/pkg/marketplace"
)

const maxAdminNotesLength = 2000

// Backend is the slice of the marketplace API the payout pipeline calls.
type Backend interface {
	ListVendorPayouts(ctx context.Context, cred auth.Credential) ([]marketplace.VendorPayout, error)
	ApplyPayoutAction(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payoutID, adminNotes string) error
}

// Locker serializes actions on the same payout id.
type Locker interface {
	Acquire(ctx context.Context, id string) (*inflight.Lease, error)
}

// Metrics counts admin actions by outcome.
type Metrics interface {
	IncPayoutAction(action, outcome string)
}

// PayoutView is a payout plus the actions the admin may take on it.
type PayoutView struct {
	marketplace.VendorPayout
	Actions []enums.PayoutAction `json:"actions"`
}

// View is what the admin payout screen renders.
type View struct {
	Payouts     []PayoutView `json:"payouts"`
	Stats       Stats        `json:"stats"`
	RefreshedAt time.Time    `json:"refreshedAt"`
	// Stale is set when an action went through but the follow-up refetch failed.
	Stale bool `json:"stale,omitempty"`
}

type ServiceParams struct {
	Backend Backend
	Board   *Board
	Locks   Locker
	Journal journal.Recorder
	Metrics Metrics
	Logger  *logger.Logger
}

type Service struct {
	backend Backend
	board   *Board
	locks   Locker
	journal journal.Recorder
	metrics Metrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Backend == nil {
		return nil, errors.New("marketplace backend is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	board := params.Board
	if board == nil {
		board = NewBoard()
	}
	recorder := params.Journal
	if recorder == nil {
		recorder = journal.Discard{}
	}
	return &Service{
		backend: params.Backend,
		board:   board,
		locks:   params.Locks,
		journal: recorder,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Board exposes the cached snapshot.
func (s *Service) Board() *Board {
	return s.board
}

// Refresh refetches every payout and replaces the board. On failure the
// board keeps its previous contents.
func (s *Service) Refresh(ctx context.Context, cred auth.Credential) (*View, error) {
	payouts, err := s.backend.ListVendorPayouts(ctx, cred)
	if err != nil {
		return nil, err
	}
	s.board.replace(payouts, s.now().UTC())
	return s.view(false), nil
}

func (s *Service) Approve(ctx context.Context, cred auth.Credential, payoutID, adminNotes string) (*View, error) {
	return s.apply(ctx, cred, enums.PayoutActionApprove, payoutID, adminNotes)
}

func (s *Service) Reject(ctx context.Context, cred auth.Credential, payoutID, adminNotes string) (*View, error) {
	return s.apply(ctx, cred, enums.PayoutActionReject, payoutID, adminNotes)
}

func (s *Service) Process(ctx context.Context, cred auth.Credential, payoutID, adminNotes string) (*View, error) {
	return s.apply(ctx, cred, enums.PayoutActionProcess, payoutID, adminNotes)
}

// Apply dispatches by action name; unknown actions are a validation error.
func (s *Service) Apply(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payoutID, adminNotes string) (*View, error) {
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout action")
	}
	return s.apply(ctx, cred, action, payoutID, adminNotes)
}

// apply issues exactly one backend call for the action, then refetches the
// whole list. A failed call leaves the board untouched unless the backend
// reports the payout already moved.
func (s *Service) apply(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payoutID, adminNotes string) (*View, error) {
	payoutID = strings.TrimSpace(payoutID)
	adminNotes = strings.TrimSpace(adminNotes)
	if payoutID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	if len(adminNotes) > maxAdminNotesLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin notes are too long")
	}

	ctx = s.logg.WithFields(s.logg.WithPayoutID(ctx, payoutID), map[string]any{
		"payout_action": action.String(),
		"admin_id":      cred.UserID,
	})

	if s.locks != nil {
		lease, err := s.locks.Acquire(ctx, payoutID)
		if err != nil {
			s.count(action, "conflict")
			return nil, err
		}
		defer func() {
			if err := lease.Release(ctx); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payout.lock.release_failed")
			}
		}()
	}

	// status is read under the lock so a finished concurrent action is seen
	current, fresh, err := s.lookup(ctx, cred, payoutID)
	if err != nil {
		return nil, err
	}
	if _, err := Next(current.Status, action); err != nil && !fresh {
		// the cached row may predate another admin's action
		if current, _, err = s.refetchOne(ctx, cred, payoutID); err != nil {
			return nil, err
		}
	}
	if _, err := Next(current.Status, action); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "payout_status", current.Status.String()), "payout.action.refused")
		s.count(action, "refused")
		return nil, err
	}

	if err := s.backend.ApplyPayoutAction(ctx, cred, action, payoutID, adminNotes); err != nil {
		s.logg.Error(ctx, "payout.action.failed", err)
		s.count(action, "failure")
		s.record(ctx, cred, action, current, enums.JournalOutcomeFailed, pkgerrors.MessageOf(err))
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) || pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			// the backend moved the payout first; show its status
			if _, refreshErr := s.Refresh(ctx, cred); refreshErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", refreshErr.Error()), "payout.refresh.failed")
			}
		}
		return nil, err
	}
	s.logg.Info(ctx, "payout.action.applied")
	s.count(action, "success")
	s.record(ctx, cred, action, current, enums.JournalOutcomeSucceeded, "")

	view, err := s.Refresh(ctx, cred)
	if err != nil {
		s.logg.Error(ctx, "payout.refresh.failed", err)
		return s.view(true), nil
	}
	return view, nil
}

// lookup finds the payout on the board, refetching once when it is unknown.
// fresh reports whether a refetch happened.
func (s *Service) lookup(ctx context.Context, cred auth.Credential, payoutID string) (marketplace.VendorPayout, bool, error) {
	if p, ok := s.board.Find(payoutID); ok {
		return p, false, nil
	}
	return s.refetchOne(ctx, cred, payoutID)
}

func (s *Service) refetchOne(ctx context.Context, cred auth.Credential, payoutID string) (marketplace.VendorPayout, bool, error) {
	if _, err := s.Refresh(ctx, cred); err != nil {
		return marketplace.VendorPayout{}, true, err
	}
	if p, ok := s.board.Find(payoutID); ok {
		return p, true, nil
	}
	return marketplace.VendorPayout{}, true, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
}

func (s *Service) view(stale bool) *View {
	payouts, refreshedAt := s.board.Snapshot()
	views := make([]PayoutView, 0, len(payouts))
	for _, p := range payouts {
		views = append(views, PayoutView{VendorPayout: p, Actions: AllowedActions(p.Status)})
	}
	return &View{
		Payouts:     views,
		Stats:       ComputeStats(payouts),
		RefreshedAt: refreshedAt,
		Stale:       stale,
	}
}

func (s *Service) count(action enums.PayoutAction, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncPayoutAction(action.String(), outcome)
}

func (s *Service) record(ctx context.Context, cred auth.Credential, action enums.PayoutAction, payout marketplace.VendorPayout, outcome enums.JournalOutcome, message string) {
	amount := payout.Amount
	s.journal.Record(ctx, journal.Entry{
		Kind:      enums.JournalKindPayout,
		SubjectID: payout.ID,
		ActorID:   cred.UserID,
		Action:    action.String(),
		Outcome:   outcome,
		Message:   message,
		Amount:    &amount,
	})
}
