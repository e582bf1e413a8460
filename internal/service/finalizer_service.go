package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neosam/haushalt-sub000/internal/consequence"
	"github.com/neosam/haushalt-sub000/internal/metrics"
	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
	"github.com/neosam/haushalt-sub000/internal/repository"
)

// FinalizerService closes periods that ended yesterday without a result.
type FinalizerService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	periods     *repository.PeriodResultRepository
	dispatcher  consequence.Dispatcher
}

func NewFinalizerService(
	tasks *repository.TaskRepository,
	completions *repository.CompletionRepository,
	periods *repository.PeriodResultRepository,
	dispatcher consequence.Dispatcher,
) *FinalizerService {
	if dispatcher == nil {
		dispatcher = consequence.Nop{}
	}
	return &FinalizerService{tasks: tasks, completions: completions, periods: periods, dispatcher: dispatcher}
}

// FinalizeReport counts what one run of FinalizeLapsed wrote.
type FinalizeReport struct {
	Checked   int
	Completed int
	Failed    int
	Skipped   int
}

func (r FinalizeReport) String() string {
	return fmt.Sprintf("checked=%d completed=%d failed=%d skipped=%d", r.Checked, r.Completed, r.Failed, r.Skipped)
}

// FinalizeLapsed writes a result for every period that ended on the day
// before today and has none yet. Paused tasks get skipped periods.
func (s *FinalizerService) FinalizeLapsed(ctx context.Context, today time.Time) (FinalizeReport, error) {
	var report FinalizeReport
	yesterday := recurrence.AddDays(today, -1)

	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active tasks: %w", err)
	}

	for i := range tasks {
		task := &tasks[i]
		schedule := task.Schedule()
		if !recurrence.IsScheduled(schedule) || recurrence.EffectivePeriod(schedule) == recurrence.PeriodNone {
			continue
		}
		start, end := recurrence.Bounds(schedule, yesterday)
		if !end.Equal(yesterday) || !hasDueDate(schedule, start, end) {
			continue
		}
		report.Checked++

		finalized, err := s.periods.IsFinalized(ctx, task.ID, start)
		if err != nil {
			return report, err
		}
		if finalized {
			continue
		}

		count, err := s.completions.CountInRange(ctx, task.ID, start, end)
		if err != nil {
			return report, err
		}
		target := task.TargetCount
		if target < 1 {
			target = 1
		}
		status := model.PeriodFailed
		switch {
		case task.Paused:
			status = model.PeriodSkipped
		case count >= int64(target):
			status = model.PeriodCompleted
		}

		result, err := s.periods.Finalize(ctx, repository.FinalizeInput{
			TaskID:           task.ID,
			PeriodStart:      start,
			PeriodEnd:        end,
			Status:           status,
			CompletionsCount: int(count),
			TargetCount:      task.TargetCount,
			FinalizedBy:      model.FinalizedBySystem,
		})
		if err != nil {
			return report, err
		}
		metrics.PeriodsFinalized.WithLabelValues(string(status)).Inc()

		switch status {
		case model.PeriodCompleted:
			report.Completed++
		case model.PeriodSkipped:
			report.Skipped++
		case model.PeriodFailed:
			report.Failed++
			if task.AssignedUserID != nil {
				if err := s.dispatcher.OnPeriodMissed(ctx, task, *task.AssignedUserID, task.HouseholdID, *result); err != nil {
					metrics.DispatchFailures.WithLabelValues("period_missed").Inc()
					log.Printf("[warn] dispatch period_missed for task %s: %v", task.ID, err)
				}
			}
		}
	}
	return report, nil
}

func hasDueDate(schedule recurrence.Schedule, start, end time.Time) bool {
	for day := start; !day.After(end); day = recurrence.AddDays(day, 1) {
		if recurrence.IsDue(schedule, day) {
			return true
		}
	}
	return false
}
