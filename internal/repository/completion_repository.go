package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
)

// CompletionRepository stores individual completion events.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *CompletionRepository) WithTx(tx *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: tx}
}

func (r *CompletionRepository) Create(ctx context.Context, completion *model.Completion) error {
	completion.DueDate = recurrence.DateOf(completion.DueDate)
	if err := r.db.WithContext(ctx).Create(completion).Error; err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	return nil
}

func (r *CompletionRepository) FindByID(ctx context.Context, completionID string) (*model.Completion, error) {
	var completion model.Completion
	if err := r.db.WithContext(ctx).Where("id = ?", completionID).First(&completion).Error; err != nil {
		return nil, notFound(err)
	}
	return &completion, nil
}

// CountByUser counts every completion of the task by the user.
func (r *CompletionRepository) CountByUser(ctx context.Context, taskID, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Completion{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return count, nil
}

// CountByUserInRange counts the user's completions credited to [start, end].
func (r *CompletionRepository) CountByUserInRange(ctx context.Context, taskID, userID string, start, end time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Completion{}).
		Where("task_id = ? AND user_id = ? AND due_date >= ? AND due_date <= ?",
			taskID, userID, recurrence.DateOf(start), recurrence.DateOf(end)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count period completions: %w", err)
	}
	return count, nil
}

// CountInRange counts completions of the task by anyone credited to [start, end].
func (r *CompletionRepository) CountInRange(ctx context.Context, taskID string, start, end time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Completion{}).
		Where("task_id = ? AND due_date >= ? AND due_date <= ?",
			taskID, recurrence.DateOf(start), recurrence.DateOf(end)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count period completions: %w", err)
	}
	return count, nil
}

// LatestByUserInRange returns the user's most recently performed completion
// credited to [start, end].
func (r *CompletionRepository) LatestByUserInRange(ctx context.Context, taskID, userID string, start, end time.Time) (*model.Completion, error) {
	var completion model.Completion
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ? AND due_date >= ? AND due_date <= ?",
			taskID, userID, recurrence.DateOf(start), recurrence.DateOf(end)).
		Order("completed_at DESC").
		First(&completion).Error; err != nil {
		return nil, notFound(err)
	}
	return &completion, nil
}

// LatestByUser returns the user's most recent completion of the task.
func (r *CompletionRepository) LatestByUser(ctx context.Context, taskID, userID string) (*model.Completion, error) {
	var completion model.Completion
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("completed_at DESC").
		First(&completion).Error; err != nil {
		return nil, notFound(err)
	}
	return &completion, nil
}

// ListByUser returns the user's completions, newest due date first.
func (r *CompletionRepository) ListByUser(ctx context.Context, taskID, userID string) ([]model.Completion, error) {
	var completions []model.Completion
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("due_date DESC, completed_at DESC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

// DueDateCounts maps each credited due date of the user's completions to how
// many completions it received.
func (r *CompletionRepository) DueDateCounts(ctx context.Context, taskID, userID string) (map[time.Time]int, error) {
	completions, err := r.ListByUser(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[time.Time]int, len(completions))
	for _, c := range completions {
		counts[recurrence.DateOf(c.DueDate)]++
	}
	return counts, nil
}

// Approve flips a pending completion to approved. It reports false when no
// pending completion with that id exists.
func (r *CompletionRepository) Approve(ctx context.Context, completionID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Completion{}).
		Where("id = ? AND status = ?", completionID, model.CompletionPending).
		Update("status", model.CompletionApproved)
	if result.Error != nil {
		return false, fmt.Errorf("approve completion: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *CompletionRepository) Delete(ctx context.Context, completionID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", completionID).Delete(&model.Completion{}).Error; err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

// ListPendingByHousehold returns pending completions of the household's tasks,
// newest first.
func (r *CompletionRepository) ListPendingByHousehold(ctx context.Context, householdID string) ([]model.PendingReview, error) {
	var completions []model.Completion
	if err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = completions.task_id").
		Where("tasks.household_id = ? AND completions.status = ?", householdID, model.CompletionPending).
		Order("completions.completed_at DESC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("list pending completions: %w", err)
	}
	if len(completions) == 0 {
		return nil, nil
	}

	taskIDs := make([]string, 0, len(completions))
	for _, c := range completions {
		taskIDs = append(taskIDs, c.TaskID)
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", taskIDs).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load pending tasks: %w", err)
	}
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	reviews := make([]model.PendingReview, 0, len(completions))
	for _, c := range completions {
		reviews = append(reviews, model.PendingReview{Completion: c, Task: byID[c.TaskID]})
	}
	return reviews, nil
}
