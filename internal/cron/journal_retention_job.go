package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

const defaultJournalRetentionDays = 180

type JournalRetentionJobParams struct {
	Logger        *logger.Logger
	Journal       journalPruner
	RetentionDays int
}

type journalPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

func NewJournalRetentionJob(params JournalRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("journal service required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultJournalRetentionDays
	}
	return &journalRetentionJob{
		logg:    params.Logger,
		journal: params.Journal,
		days:    days,
	}, nil
}

type journalRetentionJob struct {
	logg    *logger.Logger
	journal journalPruner
	days    int
}

func (j *journalRetentionJob) Name() string { return "journal-retention" }

func (j *journalRetentionJob) Run(ctx context.Context) error {
	deleted, err := j.journal.Prune(ctx, time.Duration(j.days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("journal retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention_days": j.days,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "journal.retention.complete")
	return nil
}
