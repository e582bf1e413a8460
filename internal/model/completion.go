package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionStatus tracks the review state of a completion.
type CompletionStatus string

const (
	CompletionPending  CompletionStatus = "pending"
	CompletionApproved CompletionStatus = "approved"
)

// Completion is one recorded performance of a task. DueDate is the date the
// completion is credited to, not necessarily the day it happened.
type Completion struct {
	ID          string           `gorm:"primaryKey;size:36"`
	TaskID      string           `gorm:"size:36;index:idx_completion_lookup,priority:1"`
	UserID      string           `gorm:"size:36;index:idx_completion_lookup,priority:2"`
	DueDate     time.Time        `gorm:"index:idx_completion_lookup,priority:3"`
	CompletedAt time.Time        `gorm:"index"`
	Status      CompletionStatus `gorm:"size:16;index"`
}

func (c *Completion) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// PendingReview pairs a pending completion with its task.
type PendingReview struct {
	Completion Completion
	Task       Task
}
