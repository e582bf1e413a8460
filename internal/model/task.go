package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/recurrence"
)

// HabitType decides whether completing a task is desired.
type HabitType string

const (
	HabitGood HabitType = "good"
	HabitBad  HabitType = "bad"
)

// IsInverted reports whether success means the task was not performed.
func (h HabitType) IsInverted() bool {
	return h == HabitBad
}

// Task represents a recurring obligation owned by a household.
type Task struct {
	ID                string `gorm:"primaryKey;size:36"`
	HouseholdID       string `gorm:"index;size:36"`
	Title             string
	Description       string
	Recurrence        recurrence.Field  `gorm:"type:text"`
	TimePeriod        recurrence.Period `gorm:"size:8"`
	AssignedUserID    *string           `gorm:"index;size:36"`
	TargetCount       int
	AllowExceedTarget bool
	RequiresReview    bool
	HabitType         HabitType `gorm:"size:8;default:good"`
	PointsReward      *int64
	PointsPenalty     *int64
	Archived          bool `gorm:"default:false"`
	Paused            bool `gorm:"default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.HabitType == "" {
		t.HabitType = HabitGood
	}
	return nil
}

// Schedule returns the calculator view of the task.
func (t *Task) Schedule() recurrence.Schedule {
	return recurrence.Schedule{
		Rule:      t.Recurrence.Rule,
		Period:    t.TimePeriod,
		CreatedAt: t.CreatedAt,
	}
}

// IsScheduled is false for one-time and free-form tasks.
func (t *Task) IsScheduled() bool {
	return recurrence.IsScheduled(t.Schedule())
}

// IsAssignedTo is true when the task has no assignee or user is the assignee.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedUserID == nil || *t.AssignedUserID == userID
}
