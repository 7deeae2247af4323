package journal

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowdesk/pkg/db/models"
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "journal.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.JournalEntry{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func newTestService(t *testing.T, repo Repository) (*Service, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: buf}))
	require.NoError(t, err)
	return svc, buf
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewRepository(newTestDB(t)))

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	amount := decimal.RequireFromString("12.345")
	svc.Record(ctx, Entry{
		Kind: enums.JournalKindPayment, SubjectID: "job-1", ActorID: "cust-1",
		Action: "card", Outcome: enums.JournalOutcomeFailed, Message: "Your card was declined.", Amount: &amount,
	})
	svc.Record(ctx, Entry{
		Kind: enums.JournalKindPayment, SubjectID: "job-1", ActorID: "cust-1",
		Action: "card", Outcome: enums.JournalOutcomeSucceeded, Amount: &amount,
	})
	svc.Record(ctx, Entry{
		Kind: enums.JournalKindPayout, SubjectID: "po-1", ActorID: "admin-1",
		Action: "approve", Outcome: enums.JournalOutcomeSucceeded,
	})

	entries, err := svc.List(ctx, "job-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.JournalOutcomeSucceeded, entries[0].Outcome, "newest first")
	assert.Equal(t, "Your card was declined.", entries[1].Message)
	require.True(t, entries[0].Amount.Valid)
	assert.True(t, entries[0].Amount.Decimal.Equal(decimal.RequireFromString("12.35")))

	payout, err := svc.List(ctx, "po-1", 10)
	require.NoError(t, err)
	require.Len(t, payout, 1)
	assert.False(t, payout[0].Amount.Valid)
}

func TestPruneDeletesOnlyOldEntries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewRepository(newTestDB(t)))

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{now.AddDate(0, 0, -200), now.AddDate(0, 0, -10)} {
		stamp := at
		svc.now = func() time.Time { return stamp }
		svc.Record(ctx, Entry{Kind: enums.JournalKindPayout, SubjectID: "po-9", ActorID: "admin-1", Action: "approve", Outcome: enums.JournalOutcomeSucceeded})
	}

	svc.now = func() time.Time { return now }
	deleted, err := svc.Prune(ctx, 180*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left, err := svc.List(ctx, "po-9", 10)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = svc.Prune(ctx, 0)
	assert.Error(t, err)
}

func TestListRequiresSubject(t *testing.T) {
	svc, _ := newTestService(t, NewRepository(newTestDB(t)))
	_, err := svc.List(context.Background(), " ", 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type stubRepo struct {
	createFn func(context.Context, *models.JournalEntry) error
	listFn   func(context.Context, string, int) ([]models.JournalEntry, error)
	deleteFn func(context.Context, time.Time) (int64, error)
}

func (s stubRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteFn(ctx, cutoff)
}

func (s stubRepo) Create(ctx context.Context, entry *models.JournalEntry) error {
	return s.createFn(ctx, entry)
}

func (s stubRepo) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.JournalEntry, error) {
	return s.listFn(ctx, subjectID, limit)
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	svc, buf := newTestService(t, stubRepo{
		createFn: func(context.Context, *models.JournalEntry) error { return errors.New("disk full") },
	})

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Entry{
			Kind: enums.JournalKindPayout, SubjectID: "po-1", Action: "process", Outcome: enums.JournalOutcomeFailed,
		})
	})
	assert.Contains(t, buf.String(), "journal.entry.write_failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestRecordSkipsInvalidEntries(t *testing.T) {
	called := false
	svc, buf := newTestService(t, stubRepo{
		createFn: func(context.Context, *models.JournalEntry) error { called = true; return nil },
	})

	svc.Record(context.Background(), Entry{Kind: "refund", SubjectID: "x", Action: "y", Outcome: enums.JournalOutcomeFailed})
	svc.Record(context.Background(), Entry{Kind: enums.JournalKindPayment, Action: "y", Outcome: enums.JournalOutcomeFailed})

	assert.False(t, called)
	assert.Contains(t, buf.String(), "journal.entry.invalid")
}

func TestListClampsLimit(t *testing.T) {
	var got int
	svc, _ := newTestService(t, stubRepo{
		listFn: func(_ context.Context, _ string, limit int) ([]models.JournalEntry, error) {
			got = limit
			return nil, nil
		},
	})

	_, err := svc.List(context.Background(), "job-1", 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, got)

	svc.repo = stubRepo{listFn: func(context.Context, string, int) ([]models.JournalEntry, error) {
		return nil, errors.New("timeout")
	}}
	_, err = svc.List(context.Background(), "job-1", 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestPruneWrapsRepositoryFailure(t *testing.T) {
	var cutoff time.Time
	svc, _ := newTestService(t, stubRepo{
		deleteFn: func(_ context.Context, before time.Time) (int64, error) {
			cutoff = before
			return 0, errors.New("connection reset")
		},
	})
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	_, err := svc.Prune(context.Background(), 24*time.Hour)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), cutoff)
}

func TestRecordTruncatesOnRuneBoundary(t *testing.T) {
	var stored *models.JournalEntry
	svc, _ := newTestService(t, stubRepo{
		createFn: func(_ context.Context, entry *models.JournalEntry) error { stored = entry; return nil },
	})

	// "é" is two bytes; the limit falls in the middle of one
	message := "x" + strings.Repeat("é", maxMessageLength)
	svc.Record(context.Background(), Entry{
		Kind: enums.JournalKindPayment, SubjectID: "job-1", Action: "card",
		Outcome: enums.JournalOutcomeFailed, Message: message,
	})

	require.NotNil(t, stored)
	assert.True(t, utf8.ValidString(stored.Message))
	assert.LessOrEqual(t, len(stored.Message), maxMessageLength)
	assert.Equal(t, maxMessageLength-1, len(stored.Message))
}
