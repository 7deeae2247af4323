// Package journal keeps an operator audit trail of the requests escrowdesk
// forwarded to the marketplace backend. It is not a record of payment.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/db/models"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	maxMessageLength = 1000
)

// Recorder is what the payment and payout flows write to. Record never fails
// the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Entry is one outcome to journal.
type Entry struct {
	Kind      enums.JournalKind
	SubjectID string
	ActorID   string
	Action    string
	Outcome   enums.JournalOutcome
	Message   string
	Amount    *decimal.Decimal
}

// Service persists entries through a Repository.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires a journal service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg, now: time.Now}, nil
}

// Record writes the entry; failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, entry Entry) {
	row, err := s.build(entry)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "journal_error", err.Error()), "journal.entry.invalid")
		return
	}
	if err := s.repo.Create(ctx, row); err != nil {
		ctx = s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		s.logg.Error(ctx, "journal.entry.write_failed", err)
	}
}

func (s *Service) build(entry Entry) (*models.JournalEntry, error) {
	if !entry.Kind.IsValid() {
		return nil, fmt.Errorf("invalid journal kind %q", entry.Kind)
	}
	if !entry.Outcome.IsValid() {
		return nil, fmt.Errorf("invalid journal outcome %q", entry.Outcome)
	}
	if strings.TrimSpace(entry.SubjectID) == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return nil, fmt.Errorf("action is required")
	}

	message := strings.TrimSpace(entry.Message)
	message = truncate(message, maxMessageLength)

	row := &models.JournalEntry{
		ID:        uuid.New(),
		Kind:      entry.Kind,
		SubjectID: entry.SubjectID,
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Outcome:   entry.Outcome,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if entry.Amount != nil {
		row.Amount = decimal.NewNullDecimal(entry.Amount.Round(2))
	}
	return row, nil
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// List returns the newest entries for a subject (job or payout id).
func (s *Service) List(ctx context.Context, subjectID string, limit int) ([]models.JournalEntry, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subjectId is required")
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	entries, err := s.repo.ListBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not read journal")
	}
	return entries, nil
}

// Prune deletes entries older than retention and reports how many went.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}
	cutoff := s.now().UTC().Add(-retention)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not prune journal")
	}
	return deleted, nil
}

// Discard is the Recorder used when the journal is disabled.
type Discard struct{}

func (Discard) Record(context.Context, Entry) {}
