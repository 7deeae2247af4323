package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/pkg/enums"
)

// JournalEntry is one audit row for a request escrowdesk forwarded upstream.
// It is never read back by the payment or payout flows.
type JournalEntry struct {
	ID        uuid.UUID            `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Kind      enums.JournalKind    `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	SubjectID string               `gorm:"column:subject_id;type:varchar(128);not null;index:idx_journal_entries_subject,priority:1" json:"subjectId"`
	ActorID   string               `gorm:"column:actor_id;type:varchar(128);not null" json:"actorId"`
	Action    string               `gorm:"column:action;type:varchar(32);not null" json:"action"`
	Outcome   enums.JournalOutcome `gorm:"column:outcome;type:varchar(32);not null" json:"outcome"`
	Message   string               `gorm:"column:message;type:text;not null;default:''" json:"message"`
	Amount    decimal.NullDecimal  `gorm:"column:amount;type:numeric(14,2)" json:"amount"`
	CreatedAt time.Time            `gorm:"column:created_at;not null;index:idx_journal_entries_subject,priority:2" json:"createdAt"`
}

func (JournalEntry) TableName() string {
	return "journal_entries"
}
