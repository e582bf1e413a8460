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

// PeriodResultRepository keeps at most one finalized outcome per
// (task, period start).
type PeriodResultRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPeriodResultRepository(db *gorm.DB) *PeriodResultRepository {
	return &PeriodResultRepository{db: db, now: time.Now}
}

// WithTx returns a repository bound to tx.
func (r *PeriodResultRepository) WithTx(tx *gorm.DB) *PeriodResultRepository {
	return &PeriodResultRepository{db: tx, now: r.now}
}

// FinalizeInput describes the outcome written by Finalize.
type FinalizeInput struct {
	TaskID           string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           model.PeriodStatus
	CompletionsCount int
	TargetCount      int
	FinalizedBy      string
	Notes            *string
}

// PeriodCounts are range-filtered counts of period results by status.
type PeriodCounts struct {
	Completed int
	Failed    int
	Skipped   int
}

// Finalize records the outcome of a period. An existing row for the same
// task and period start is replaced in place, which is how a late completion
// turns a failed period into a completed one.
func (r *PeriodResultRepository) Finalize(ctx context.Context, in FinalizeInput) (*model.PeriodResult, error) {
	var result model.PeriodResult
	db := r.db.WithContext(ctx)
	start := recurrence.DateOf(in.PeriodStart)
	now := r.now().UTC()

	err := db.Where("task_id = ? AND period_start = ?", in.TaskID, start).First(&result).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"status":            in.Status,
			"completions_count": in.CompletionsCount,
			"target_count":      in.TargetCount,
			"finalized_at":      now,
			"finalized_by":      in.FinalizedBy,
			"notes":             in.Notes,
		}
		if err := db.Model(&result).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update period result: %w", err)
		}
		result.Status = in.Status
		result.CompletionsCount = in.CompletionsCount
		result.TargetCount = in.TargetCount
		result.FinalizedAt = now
		result.FinalizedBy = in.FinalizedBy
		result.Notes = in.Notes
		return &result, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		result = model.PeriodResult{
			TaskID:           in.TaskID,
			PeriodStart:      start,
			PeriodEnd:        recurrence.DateOf(in.PeriodEnd),
			Status:           in.Status,
			CompletionsCount: in.CompletionsCount,
			TargetCount:      in.TargetCount,
			FinalizedAt:      now,
			FinalizedBy:      in.FinalizedBy,
			Notes:            in.Notes,
		}
		if err := db.Create(&result).Error; err != nil {
			return nil, fmt.Errorf("create period result: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("find period result: %w", err)
	}
}

// Get returns the result for a period start, or ErrNotFound.
func (r *PeriodResultRepository) Get(ctx context.Context, taskID string, periodStart time.Time) (*model.PeriodResult, error) {
	var result model.PeriodResult
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND period_start = ?", taskID, recurrence.DateOf(periodStart)).
		First(&result).Error; err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

// ListForTask returns results whose period starts in [start, end], newest first.
func (r *PeriodResultRepository) ListForTask(ctx context.Context, taskID string, start, end time.Time) ([]model.PeriodResult, error) {
	var results []model.PeriodResult
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND period_start >= ? AND period_start <= ?",
			taskID, recurrence.DateOf(start), recurrence.DateOf(end)).
		Order("period_start DESC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list period results: %w", err)
	}
	return results, nil
}

// Recent returns up to limit of the latest results, oldest first.
func (r *PeriodResultRepository) Recent(ctx context.Context, taskID string, limit int) ([]model.PeriodResult, error) {
	var results []model.PeriodResult
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("period_start DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list recent period results: %w", err)
	}
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// Count counts results by status over period starts in [start, end]. A range
// with no results yields zero counts.
func (r *PeriodResultRepository) Count(ctx context.Context, taskID string, start, end time.Time) (PeriodCounts, error) {
	var counts PeriodCounts
	for status, dst := range map[model.PeriodStatus]*int{
		model.PeriodCompleted: &counts.Completed,
		model.PeriodFailed:    &counts.Failed,
		model.PeriodSkipped:   &counts.Skipped,
	} {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.PeriodResult{}).
			Where("task_id = ? AND period_start >= ? AND period_start <= ? AND status = ?",
				taskID, recurrence.DateOf(start), recurrence.DateOf(end), status).
			Count(&n).Error; err != nil {
			return PeriodCounts{}, fmt.Errorf("count %s periods: %w", status, err)
		}
		*dst = int(n)
	}
	return counts, nil
}

// IsFinalized reports whether a result exists for the period start.
func (r *PeriodResultRepository) IsFinalized(ctx context.Context, taskID string, periodStart time.Time) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.PeriodResult{}).
		Where("task_id = ? AND period_start = ?", taskID, recurrence.DateOf(periodStart)).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check period result: %w", err)
	}
	return n > 0, nil
}

// UpdateStatus corrects the status of an existing result.
func (r *PeriodResultRepository) UpdateStatus(ctx context.Context, taskID string, periodStart time.Time, status model.PeriodStatus, finalizedBy string, notes *string) (*model.PeriodResult, error) {
	result := r.db.WithContext(ctx).Model(&model.PeriodResult{}).
		Where("task_id = ? AND period_start = ?", taskID, recurrence.DateOf(periodStart)).
		Updates(map[string]interface{}{
			"status":       status,
			"finalized_at": r.now().UTC(),
			"finalized_by": finalizedBy,
			"notes":        notes,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("update period status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, taskID, periodStart)
}

// Delete removes the result for a period start. Deleting a missing row is
// not an error.
func (r *PeriodResultRepository) Delete(ctx context.Context, taskID string, periodStart time.Time) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND period_start = ?", taskID, recurrence.DateOf(periodStart)).
		Delete(&model.PeriodResult{}).Error; err != nil {
		return fmt.Errorf("delete period result: %w", err)
	}
	return nil
}
