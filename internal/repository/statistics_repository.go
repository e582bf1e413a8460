package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
)

// StatisticsRepository persists the weekly and monthly member summaries.
type StatisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// UpsertWeekly replaces the summary for (household, user, week start) and its
// per-task rows.
func (r *StatisticsRepository) UpsertWeekly(ctx context.Context, stats *model.WeeklyStatistics) error {
	stats.WeekStart = recurrence.DateOf(stats.WeekStart)
	stats.WeekEnd = recurrence.DateOf(stats.WeekEnd)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.WeeklyStatistics
		err := tx.Where("household_id = ? AND user_id = ? AND week_start = ?",
			stats.HouseholdID, stats.UserID, stats.WeekStart).First(&existing).Error
		switch {
		case err == nil:
			stats.ID = existing.ID
			if err := tx.Where("weekly_statistics_id = ?", existing.ID).Delete(&model.WeeklyStatisticsTask{}).Error; err != nil {
				return fmt.Errorf("clear weekly task statistics: %w", err)
			}
			for i := range stats.Tasks {
				stats.Tasks[i].ID = ""
			}
			if err := tx.Save(stats).Error; err != nil {
				return fmt.Errorf("update weekly statistics: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(stats).Error; err != nil {
				return fmt.Errorf("create weekly statistics: %w", err)
			}
		default:
			return fmt.Errorf("find weekly statistics: %w", err)
		}
		return nil
	})
}

// Weekly returns the household's summaries for a week, one per member.
func (r *StatisticsRepository) Weekly(ctx context.Context, householdID string, weekStart time.Time) ([]model.WeeklyStatistics, error) {
	var stats []model.WeeklyStatistics
	if err := r.db.WithContext(ctx).Preload("Tasks").
		Where("household_id = ? AND week_start = ?", householdID, recurrence.DateOf(weekStart)).
		Order("user_id").
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list weekly statistics: %w", err)
	}
	return stats, nil
}

// UpsertMonthly replaces the summary for (household, user, month) and its
// per-task rows.
func (r *StatisticsRepository) UpsertMonthly(ctx context.Context, stats *model.MonthlyStatistics) error {
	stats.Month = recurrence.DateOf(stats.Month)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.MonthlyStatistics
		err := tx.Where("household_id = ? AND user_id = ? AND month = ?",
			stats.HouseholdID, stats.UserID, stats.Month).First(&existing).Error
		switch {
		case err == nil:
			stats.ID = existing.ID
			if err := tx.Where("monthly_statistics_id = ?", existing.ID).Delete(&model.MonthlyStatisticsTask{}).Error; err != nil {
				return fmt.Errorf("clear monthly task statistics: %w", err)
			}
			for i := range stats.Tasks {
				stats.Tasks[i].ID = ""
			}
			if err := tx.Save(stats).Error; err != nil {
				return fmt.Errorf("update monthly statistics: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(stats).Error; err != nil {
				return fmt.Errorf("create monthly statistics: %w", err)
			}
		default:
			return fmt.Errorf("find monthly statistics: %w", err)
		}
		return nil
	})
}

// Monthly returns the household's summaries for the month starting at month.
func (r *StatisticsRepository) Monthly(ctx context.Context, householdID string, month time.Time) ([]model.MonthlyStatistics, error) {
	var stats []model.MonthlyStatistics
	if err := r.db.WithContext(ctx).Preload("Tasks").
		Where("household_id = ? AND month = ?", householdID, recurrence.DateOf(month)).
		Order("user_id").
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list monthly statistics: %w", err)
	}
	return stats, nil
}
