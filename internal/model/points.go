package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointKind classifies a points ledger entry.
type PointKind string

const (
	PointsCompletion    PointKind = "completion"
	PointsBadCompletion PointKind = "bad_completion"
	PointsMissed        PointKind = "missed"
	PointsReversal      PointKind = "reversal"
)

// PointTransaction is an append-only points ledger entry. Corrections are
// reversal entries pointing at the entry they cancel. CompletionID links
// entries booked for a completion.
type PointTransaction struct {
	ID           string    `gorm:"primaryKey;size:36"`
	HouseholdID  string    `gorm:"size:36;index:idx_points_member,priority:1"`
	UserID       string    `gorm:"size:36;index:idx_points_member,priority:2"`
	TaskID       string    `gorm:"size:36;index"`
	CompletionID *string   `gorm:"size:36;index"`
	Kind         PointKind `gorm:"size:16"`
	Amount       int64
	Reason       string
	ReversesID   *string `gorm:"size:36;index"`
	CreatedAt    time.Time
}

func (p *PointTransaction) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
