package journal

import (
	"context"
	"time"

	"github.com/angelmondragon/escrowdesk/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for journal entries.
type Repository interface {
	Create(ctx context.Context, entry *models.JournalEntry) error
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.JournalEntry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a journal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.JournalEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteBefore removes entries created strictly before cutoff.
func (r *repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.JournalEntry{})
	return res.RowsAffected, res.Error
}
