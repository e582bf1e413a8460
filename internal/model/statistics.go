package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WeeklyStatistics is a member's completion summary for one week.
type WeeklyStatistics struct {
	ID             string    `gorm:"primaryKey;size:36"`
	HouseholdID    string    `gorm:"size:36;index:idx_weekly_stats_key,unique,priority:1"`
	UserID         string    `gorm:"size:36;index:idx_weekly_stats_key,unique,priority:2"`
	WeekStart      time.Time `gorm:"index:idx_weekly_stats_key,unique,priority:3"`
	WeekEnd        time.Time
	TotalExpected  int
	TotalCompleted int
	CompletionRate *float64
	CalculatedAt   time.Time
	Tasks          []WeeklyStatisticsTask `gorm:"foreignKey:WeeklyStatisticsID;constraint:OnDelete:CASCADE"`
}

// WeeklyStatisticsTask is the per-task breakdown of WeeklyStatistics.
type WeeklyStatisticsTask struct {
	ID                 string `gorm:"primaryKey;size:36"`
	WeeklyStatisticsID string `gorm:"size:36;index"`
	TaskID             string `gorm:"size:36"`
	TaskTitle          string
	Expected           int
	Completed          int
	CompletionRate     *float64
}

// MonthlyStatistics is a member's completion summary for one month. Month
// holds the first day of the month.
type MonthlyStatistics struct {
	ID             string    `gorm:"primaryKey;size:36"`
	HouseholdID    string    `gorm:"size:36;index:idx_monthly_stats_key,unique,priority:1"`
	UserID         string    `gorm:"size:36;index:idx_monthly_stats_key,unique,priority:2"`
	Month          time.Time `gorm:"index:idx_monthly_stats_key,unique,priority:3"`
	TotalExpected  int
	TotalCompleted int
	CompletionRate *float64
	CalculatedAt   time.Time
	Tasks          []MonthlyStatisticsTask `gorm:"foreignKey:MonthlyStatisticsID;constraint:OnDelete:CASCADE"`
}

// MonthlyStatisticsTask is the per-task breakdown of MonthlyStatistics.
type MonthlyStatisticsTask struct {
	ID                  string `gorm:"primaryKey;size:36"`
	MonthlyStatisticsID string `gorm:"size:36;index"`
	TaskID              string `gorm:"size:36"`
	TaskTitle           string
	Expected            int
	Completed           int
	CompletionRate      *float64
}

func (s *WeeklyStatistics) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *WeeklyStatisticsTask) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *MonthlyStatistics) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *MonthlyStatisticsTask) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TaskStatistics is the detail view of one task for one member.
type TaskStatistics struct {
	CompletionRateWeek    *float64
	CompletionRateMonth   *float64
	CompletionRateAllTime *float64
	PeriodsCompletedWeek  int
	PeriodsTotalWeek      int
	PeriodsSkippedWeek    int
	PeriodsCompletedMonth int
	PeriodsTotalMonth     int
	PeriodsSkippedMonth   int
	PeriodsCompletedAll   int
	PeriodsTotalAll       int
	PeriodsSkippedAll     int
	CurrentStreak         int
	BestStreak            int
	TotalCompletions      int64
	LastCompleted         *time.Time
	NextDue               *time.Time
	RecentPeriods         []PeriodDisplay
}
