package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PeriodStatus is the frozen outcome of one task period.
type PeriodStatus string

const (
	PeriodCompleted PeriodStatus = "completed"
	PeriodFailed    PeriodStatus = "failed"
	PeriodSkipped   PeriodStatus = "skipped"
)

// FinalizedBySystem marks rows written by background jobs.
const FinalizedBySystem = "system"

// PeriodResult is the single finalized outcome of a task period.
// (TaskID, PeriodStart) is unique.
type PeriodResult struct {
	ID               string       `gorm:"primaryKey;size:36"`
	TaskID           string       `gorm:"size:36;index:idx_period_results_task_start,unique,priority:1"`
	PeriodStart      time.Time    `gorm:"index:idx_period_results_task_start,unique,priority:2"`
	PeriodEnd        time.Time
	Status           PeriodStatus `gorm:"size:16"`
	CompletionsCount int
	TargetCount      int
	FinalizedAt      time.Time
	FinalizedBy      string `gorm:"size:64"`
	Notes            *string
}

func (p *PeriodResult) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PeriodDisplay is the compact form used by habit tracker strips.
type PeriodDisplay struct {
	PeriodStart time.Time
	Status      PeriodStatus
}
