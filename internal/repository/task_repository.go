package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByHousehold(ctx context.Context, householdID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("household_id = ?", householdID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListActive returns every task that is not archived, across households.
func (r *TaskRepository) ListActive(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("archived = ?", false).
		Order("household_id, created_at").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListHouseholds returns the ids of households owning at least one active task.
func (r *TaskRepository) ListHouseholds(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("archived = ?", false).
		Distinct("household_id").
		Order("household_id").
		Pluck("household_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes a task together with its completions and period results.
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.Completion{}).Error; err != nil {
			return fmt.Errorf("delete task completions: %w", err)
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&model.PeriodResult{}).Error; err != nil {
			return fmt.Errorf("delete task period results: %w", err)
		}
		if err := tx.Where("id = ?", taskID).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}
