package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/consequence"
	"github.com/neosam/haushalt-sub000/internal/metrics"
	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
	"github.com/neosam/haushalt-sub000/internal/repository"
)

// CompletionService is the completion ledger: it records, undoes and reviews
// completions and finalizes periods whose target was met.
type CompletionService struct {
	tx          *repository.Transactor
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	periods     *repository.PeriodResultRepository
	stats       *StatisticsService
	dispatcher  consequence.Dispatcher
	now         func() time.Time
}

func NewCompletionService(
	tx *repository.Transactor,
	tasks *repository.TaskRepository,
	completions *repository.CompletionRepository,
	periods *repository.PeriodResultRepository,
	stats *StatisticsService,
	dispatcher consequence.Dispatcher,
) *CompletionService {
	if dispatcher == nil {
		dispatcher = consequence.Nop{}
	}
	return &CompletionService{
		tx:          tx,
		tasks:       tasks,
		completions: completions,
		periods:     periods,
		stats:       stats,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
}

// TaskStatus summarizes a task from one member's point of view.
type TaskStatus struct {
	Task                *model.Task
	CompletionsInPeriod int64
	CurrentStreak       int
	LastCompletion      *time.Time
	NextDue             *time.Time
	IsAssigned          bool
	CanComplete         bool
}

// creditDate is the date a completion made today is credited to. ok is false
// when a scheduled task has no occurrence left.
func creditDate(task *model.Task, today time.Time) (time.Time, bool) {
	schedule := task.Schedule()
	if !recurrence.IsScheduled(schedule) {
		return today, true
	}
	return recurrence.NextDue(schedule, today)
}

// Complete records that userID performed the task. today is the caller's
// calendar date in the household timezone.
func (s *CompletionService) Complete(ctx context.Context, taskID, userID string, today time.Time) (*model.Completion, error) {
	today = recurrence.DateOf(today)

	var (
		task       *model.Task
		completion *model.Completion
	)
	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		completions := s.completions.WithTx(tx)
		periods := s.periods.WithTx(tx)

		var err error
		task, err = tasks.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsAssignedTo(userID) {
			return ErrNotAssigned
		}

		schedule := task.Schedule()
		scheduled := recurrence.IsScheduled(schedule)
		dueDate, ok := creditDate(task, today)
		if !ok {
			return ErrNotDueToday
		}

		if task.TargetCount > 0 && !task.AllowExceedTarget {
			var done int64
			if scheduled {
				start, end := recurrence.Bounds(schedule, dueDate)
				done, err = completions.CountByUserInRange(ctx, task.ID, userID, start, end)
			} else {
				done, err = completions.CountByUser(ctx, task.ID, userID)
			}
			if err != nil {
				return err
			}
			if done >= int64(task.TargetCount) {
				return ErrAlreadyCompleted
			}
		}

		status := model.CompletionApproved
		if task.RequiresReview {
			status = model.CompletionPending
		}
		completion = &model.Completion{
			TaskID:      task.ID,
			UserID:      userID,
			DueDate:     dueDate,
			CompletedAt: s.now().UTC(),
			Status:      status,
		}
		if err := completions.Create(ctx, completion); err != nil {
			return err
		}

		if !scheduled || task.TargetCount == 0 {
			return nil
		}
		start, end := recurrence.Bounds(schedule, dueDate)
		count, err := completions.CountInRange(ctx, task.ID, start, end)
		if err != nil {
			return err
		}
		if count < int64(task.TargetCount) {
			return nil
		}
		if _, err := periods.Finalize(ctx, repository.FinalizeInput{
			TaskID:           task.ID,
			PeriodStart:      start,
			PeriodEnd:        end,
			Status:           model.PeriodCompleted,
			CompletionsCount: int(count),
			TargetCount:      task.TargetCount,
			FinalizedBy:      userID,
		}); err != nil {
			return err
		}
		metrics.PeriodsFinalized.WithLabelValues(string(model.PeriodCompleted)).Inc()
		return nil
	})
	if err != nil {
		countRejection(err)
		return nil, err
	}

	metrics.Completions.WithLabelValues(string(task.HabitType), string(completion.Status)).Inc()
	s.dispatchCompletion(ctx, task, completion, today)
	return completion, nil
}

func countRejection(err error) {
	switch {
	case errors.Is(err, ErrNotAssigned):
		metrics.CompletionRejections.WithLabelValues("not_assigned").Inc()
	case errors.Is(err, ErrAlreadyCompleted):
		metrics.CompletionRejections.WithLabelValues("already_completed").Inc()
	case errors.Is(err, ErrNotDueToday):
		metrics.CompletionRejections.WithLabelValues("not_due").Inc()
	}
}

func (s *CompletionService) dispatchCompletion(ctx context.Context, task *model.Task, completion *model.Completion, today time.Time) {
	if task.HabitType.IsInverted() {
		s.logDispatch("bad_completion", task, s.dispatcher.OnBadCompletion(ctx, task, completion, task.HouseholdID))
		return
	}
	streak, err := s.stats.CurrentStreak(ctx, task, completion.UserID, today)
	if err != nil {
		log.Printf("[warn] streak for task %s user %s: %v", task.ID, completion.UserID, err)
	}
	s.logDispatch("good_completion", task, s.dispatcher.OnGoodCompletion(ctx, task, completion, task.HouseholdID, streak))
}

func (s *CompletionService) logDispatch(event string, task *model.Task, err error) {
	if err == nil {
		return
	}
	metrics.DispatchFailures.WithLabelValues(event).Inc()
	log.Printf("[warn] dispatch %s for task %s: %v", event, task.ID, err)
}

// undoPeriods lists the periods Uncomplete searches, in order: the one
// containing today, then the one a completion made today would be credited to.
func undoPeriods(task *model.Task, today time.Time) [][2]time.Time {
	schedule := task.Schedule()
	start, end := recurrence.Bounds(schedule, today)
	periods := [][2]time.Time{{start, end}}
	if due, ok := creditDate(task, today); ok {
		if dueStart, dueEnd := recurrence.Bounds(schedule, due); !dueStart.Equal(start) {
			periods = append(periods, [2]time.Time{dueStart, dueEnd})
		}
	}
	return periods
}

// Uncomplete removes the member's most recent completion in the current
// period, or in the upcoming period an early completion was credited to when
// the current one has none. The period result is dropped when the period no
// longer meets its target.
func (s *CompletionService) Uncomplete(ctx context.Context, taskID, userID string, today time.Time) error {
	today = recurrence.DateOf(today)

	var (
		task   *model.Task
		latest *model.Completion
	)
	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		completions := s.completions.WithTx(tx)

		var err error
		task, err = s.tasks.WithTx(tx).FindByID(ctx, taskID)
		if err != nil {
			return err
		}

		var start, end time.Time
		for _, period := range undoPeriods(task, today) {
			start, end = period[0], period[1]
			latest, err = completions.LatestByUserInRange(ctx, task.ID, userID, start, end)
			if err == nil {
				break
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		if latest == nil {
			return ErrNotCompleted
		}
		if err := completions.Delete(ctx, latest.ID); err != nil {
			return err
		}

		if !recurrence.IsScheduled(task.Schedule()) || task.TargetCount == 0 {
			return nil
		}
		remaining, err := completions.CountInRange(ctx, task.ID, start, end)
		if err != nil {
			return err
		}
		if remaining < int64(task.TargetCount) {
			return s.periods.WithTx(tx).Delete(ctx, task.ID, start)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logDispatch("completion_undone", task, s.dispatcher.OnCompletionUndone(ctx, task, latest, task.HouseholdID))
	return nil
}

// ApproveCompletion flips a pending completion to approved.
func (s *CompletionService) ApproveCompletion(ctx context.Context, completionID string) (*model.Completion, error) {
	ok, err := s.completions.Approve(ctx, completionID)
	if err != nil {
		return nil, err
	}
	completion, err := s.completions.FindByID(ctx, completionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	return completion, nil
}

// RejectCompletion deletes a pending completion and re-evaluates its period.
// A period that ended before today and no longer meets its target becomes
// failed; a running one loses its result so it can be completed again.
func (s *CompletionService) RejectCompletion(ctx context.Context, completionID string, today time.Time) error {
	today = recurrence.DateOf(today)

	var (
		task       *model.Task
		completion *model.Completion
	)
	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		completions := s.completions.WithTx(tx)
		periods := s.periods.WithTx(tx)

		var err error
		completion, err = completions.FindByID(ctx, completionID)
		if err != nil {
			return err
		}
		if completion.Status != model.CompletionPending {
			return fmt.Errorf("reject completion %s: %w", completionID, ErrNotFound)
		}
		task, err = s.tasks.WithTx(tx).FindByID(ctx, completion.TaskID)
		if err != nil {
			return err
		}
		if err := completions.Delete(ctx, completion.ID); err != nil {
			return err
		}

		schedule := task.Schedule()
		if !recurrence.IsScheduled(schedule) || task.TargetCount == 0 {
			return nil
		}
		start, end := recurrence.Bounds(schedule, completion.DueDate)
		result, err := periods.Get(ctx, task.ID, start)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		count, err := completions.CountInRange(ctx, task.ID, start, end)
		if err != nil {
			return err
		}
		if count >= int64(task.TargetCount) {
			return nil
		}
		if !end.Before(today) {
			return periods.Delete(ctx, task.ID, start)
		}
		note := "completion rejected"
		_, err = periods.Finalize(ctx, repository.FinalizeInput{
			TaskID:           task.ID,
			PeriodStart:      start,
			PeriodEnd:        result.PeriodEnd,
			Status:           model.PeriodFailed,
			CompletionsCount: int(count),
			TargetCount:      task.TargetCount,
			FinalizedBy:      model.FinalizedBySystem,
			Notes:            &note,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logDispatch("completion_rejected", task,
		s.dispatcher.OnCompletionRejected(ctx, task, completion, task.HouseholdID))
	return nil
}

func (s *CompletionService) GetCompletion(ctx context.Context, completionID string) (*model.Completion, error) {
	return s.completions.FindByID(ctx, completionID)
}

// ListPendingReviews returns completions of the household awaiting review.
func (s *CompletionService) ListPendingReviews(ctx context.Context, householdID string) ([]model.PendingReview, error) {
	return s.completions.ListPendingByHousehold(ctx, householdID)
}

// TaskStatus reports where the member stands on the task today.
func (s *CompletionService) TaskStatus(ctx context.Context, taskID, userID string, today time.Time) (*TaskStatus, error) {
	today = recurrence.DateOf(today)
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	status := &TaskStatus{Task: task, IsAssigned: task.IsAssignedTo(userID)}
	schedule := task.Schedule()
	due, dueOK := creditDate(task, today)
	if recurrence.IsScheduled(schedule) && dueOK {
		next := due
		status.NextDue = &next
	}

	// CanComplete follows the credited period, the one Complete checks.
	var credited int64
	for _, period := range undoPeriods(task, today) {
		count, err := s.completions.CountByUserInRange(ctx, task.ID, userID, period[0], period[1])
		if err != nil {
			return nil, err
		}
		if status.CompletionsInPeriod == 0 {
			status.CompletionsInPeriod = count
		}
		credited = count
	}
	if status.CurrentStreak, err = s.stats.CurrentStreak(ctx, task, userID, today); err != nil {
		return nil, err
	}

	latest, err := s.completions.LatestByUser(ctx, task.ID, userID)
	switch {
	case err == nil:
		at := latest.CompletedAt
		status.LastCompletion = &at
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	status.CanComplete = status.IsAssigned && dueOK &&
		(task.TargetCount == 0 || task.AllowExceedTarget || credited < int64(task.TargetCount))
	return status, nil
}
