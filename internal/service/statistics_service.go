package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
	"github.com/neosam/haushalt-sub000/internal/repository"
)

const recentPeriodsLimit = 15

// StatisticsService derives streaks and completion rates from completions and
// period results.
type StatisticsService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	periods     *repository.PeriodResultRepository
	stats       *repository.StatisticsRepository
	now         func() time.Time
}

func NewStatisticsService(
	tasks *repository.TaskRepository,
	completions *repository.CompletionRepository,
	periods *repository.PeriodResultRepository,
	stats *repository.StatisticsRepository,
) *StatisticsService {
	return &StatisticsService{
		tasks:       tasks,
		completions: completions,
		periods:     periods,
		stats:       stats,
		now:         time.Now,
	}
}

// Rate is the outcome of a completion-rate calculation. Percent is nil when
// there were no expected periods.
type Rate struct {
	Expected   int
	Successful int
	Percent    *float64
}

// CompletionRate turns period counts into a success rate. Skipped periods do
// not count as expected. For bad habits success is the absence of a
// completion.
func CompletionRate(counts repository.PeriodCounts, habit model.HabitType) Rate {
	expected := counts.Completed + counts.Failed
	successful := counts.Completed
	if habit.IsInverted() {
		successful = expected - counts.Completed
	}
	rate := Rate{Expected: expected, Successful: successful}
	if expected > 0 {
		pct := float64(successful) / float64(expected) * 100
		rate.Percent = &pct
	}
	return rate
}

// CurrentStreak counts consecutive satisfied due dates of the member ending
// at the task's next due date on or after today.
func (s *StatisticsService) CurrentStreak(ctx context.Context, task *model.Task, userID string, today time.Time) (int, error) {
	schedule := task.Schedule()
	if !recurrence.IsScheduled(schedule) {
		if task.TargetCount == 0 {
			return 0, nil
		}
		n, err := s.completions.CountByUser(ctx, task.ID, userID)
		return int(n), err
	}

	counts, err := s.completions.DueDateCounts(ctx, task.ID, userID)
	if err != nil {
		return 0, err
	}
	dates := sortedDates(counts)

	expected := recurrence.DateOf(today)
	if next, ok := recurrence.NextDue(schedule, today); ok {
		expected = next
	}

	streak := 0
	for i := len(dates) - 1; i >= 0; i-- {
		due := dates[i]
		if streak == 0 && due.After(expected) {
			continue
		}
		// A completion one day before the first expected date still starts
		// the streak.
		if due.Equal(expected) || (streak == 0 && due.Equal(recurrence.AddDays(expected, -1))) {
			streak++
			expected = recurrence.PreviousDue(schedule, due)
			continue
		}
		break
	}
	return streak, nil
}

// BestStreak returns the longest run of consecutive due dates that each met
// the target.
func (s *StatisticsService) BestStreak(ctx context.Context, task *model.Task, userID string) (int, error) {
	schedule := task.Schedule()
	if !recurrence.IsScheduled(schedule) {
		n, err := s.completions.CountByUser(ctx, task.ID, userID)
		return int(n), err
	}

	counts, err := s.completions.DueDateCounts(ctx, task.ID, userID)
	if err != nil {
		return 0, err
	}
	return bestStreak(schedule, counts, task.TargetCount), nil
}

func bestStreak(schedule recurrence.Schedule, counts map[time.Time]int, target int) int {
	if target < 1 {
		target = 1
	}
	best, run := 0, 0
	var prev time.Time
	for _, due := range sortedDates(counts) {
		if counts[due] < target {
			run = 0
			continue
		}
		if run > 0 {
			next, ok := recurrence.NextDue(schedule, recurrence.AddDays(prev, 1))
			if ok && next.Equal(due) {
				run++
			} else {
				run = 1
			}
		} else {
			run = 1
		}
		prev = due
		if run > best {
			best = run
		}
	}
	return best
}

func sortedDates(counts map[time.Time]int) []time.Time {
	dates := make([]time.Time, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// TaskStatistics builds the detail view of a task for one member.
func (s *StatisticsService) TaskStatistics(ctx context.Context, task *model.Task, userID string, today time.Time) (*model.TaskStatistics, error) {
	today = recurrence.DateOf(today)
	weekStart, weekEnd := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodWeek}, today)
	monthStart, monthEnd := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodMonth}, today)

	week, err := s.periods.Count(ctx, task.ID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	month, err := s.periods.Count(ctx, task.ID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	all, err := s.periods.Count(ctx, task.ID, recurrence.AllTimeStart, recurrence.AllTimeEnd)
	if err != nil {
		return nil, err
	}

	weekRate := CompletionRate(week, task.HabitType)
	monthRate := CompletionRate(month, task.HabitType)
	allRate := CompletionRate(all, task.HabitType)

	stats := &model.TaskStatistics{
		CompletionRateWeek:    weekRate.Percent,
		CompletionRateMonth:   monthRate.Percent,
		CompletionRateAllTime: allRate.Percent,
		PeriodsCompletedWeek:  weekRate.Successful,
		PeriodsTotalWeek:      weekRate.Expected,
		PeriodsSkippedWeek:    week.Skipped,
		PeriodsCompletedMonth: monthRate.Successful,
		PeriodsTotalMonth:     monthRate.Expected,
		PeriodsSkippedMonth:   month.Skipped,
		PeriodsCompletedAll:   allRate.Successful,
		PeriodsTotalAll:       allRate.Expected,
		PeriodsSkippedAll:     all.Skipped,
	}

	if stats.CurrentStreak, err = s.CurrentStreak(ctx, task, userID, today); err != nil {
		return nil, err
	}
	if stats.BestStreak, err = s.BestStreak(ctx, task, userID); err != nil {
		return nil, err
	}
	if stats.TotalCompletions, err = s.completions.CountByUser(ctx, task.ID, userID); err != nil {
		return nil, err
	}

	latest, err := s.completions.LatestByUser(ctx, task.ID, userID)
	switch {
	case err == nil:
		completedAt := latest.CompletedAt
		stats.LastCompleted = &completedAt
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if next, ok := recurrence.NextDue(task.Schedule(), today); ok {
		stats.NextDue = &next
	}

	recent, err := s.periods.Recent(ctx, task.ID, recentPeriodsLimit)
	if err != nil {
		return nil, err
	}
	for _, r := range recent {
		stats.RecentPeriods = append(stats.RecentPeriods, model.PeriodDisplay{PeriodStart: r.PeriodStart, Status: r.Status})
	}
	return stats, nil
}

// memberTally accumulates one member's expected and successful periods.
type memberTally struct {
	expected   int
	successful int
	tasks      []taskTally
}

type taskTally struct {
	task *model.Task
	rate Rate
}

func (s *StatisticsService) tally(ctx context.Context, householdID string, start, end time.Time) (map[string]*memberTally, error) {
	tasks, err := s.tasks.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list household tasks: %w", err)
	}

	members := make(map[string]*memberTally)
	for i := range tasks {
		task := &tasks[i]
		if task.Archived || task.AssignedUserID == nil {
			continue
		}
		counts, err := s.periods.Count(ctx, task.ID, start, end)
		if err != nil {
			return nil, err
		}
		rate := CompletionRate(counts, task.HabitType)

		m, ok := members[*task.AssignedUserID]
		if !ok {
			m = &memberTally{}
			members[*task.AssignedUserID] = m
		}
		m.expected += rate.Expected
		m.successful += rate.Successful
		m.tasks = append(m.tasks, taskTally{task: task, rate: rate})
	}
	return members, nil
}

func (m *memberTally) percent() *float64 {
	if m.expected == 0 {
		return nil
	}
	pct := float64(m.successful) / float64(m.expected) * 100
	return &pct
}

// CalculateWeekly stores per-member statistics for the week containing
// weekStart and returns them.
func (s *StatisticsService) CalculateWeekly(ctx context.Context, householdID string, weekStart time.Time) ([]model.WeeklyStatistics, error) {
	start, end := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodWeek}, weekStart)
	members, err := s.tally(ctx, householdID, start, end)
	if err != nil {
		return nil, err
	}

	calculatedAt := s.now().UTC()
	for userID, m := range members {
		stats := &model.WeeklyStatistics{
			HouseholdID:    householdID,
			UserID:         userID,
			WeekStart:      start,
			WeekEnd:        end,
			TotalExpected:  m.expected,
			TotalCompleted: m.successful,
			CompletionRate: m.percent(),
			CalculatedAt:   calculatedAt,
		}
		for _, t := range m.tasks {
			stats.Tasks = append(stats.Tasks, model.WeeklyStatisticsTask{
				TaskID:         t.task.ID,
				TaskTitle:      t.task.Title,
				Expected:       t.rate.Expected,
				Completed:      t.rate.Successful,
				CompletionRate: t.rate.Percent,
			})
		}
		if err := s.stats.UpsertWeekly(ctx, stats); err != nil {
			return nil, err
		}
	}
	return s.stats.Weekly(ctx, householdID, start)
}

// CalculateMonthly stores per-member statistics for the month containing
// month and returns them.
func (s *StatisticsService) CalculateMonthly(ctx context.Context, householdID string, month time.Time) ([]model.MonthlyStatistics, error) {
	start, end := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodMonth}, month)
	members, err := s.tally(ctx, householdID, start, end)
	if err != nil {
		return nil, err
	}

	calculatedAt := s.now().UTC()
	for userID, m := range members {
		stats := &model.MonthlyStatistics{
			HouseholdID:    householdID,
			UserID:         userID,
			Month:          start,
			TotalExpected:  m.expected,
			TotalCompleted: m.successful,
			CompletionRate: m.percent(),
			CalculatedAt:   calculatedAt,
		}
		for _, t := range m.tasks {
			stats.Tasks = append(stats.Tasks, model.MonthlyStatisticsTask{
				TaskID:         t.task.ID,
				TaskTitle:      t.task.Title,
				Expected:       t.rate.Expected,
				Completed:      t.rate.Successful,
				CompletionRate: t.rate.Percent,
			})
		}
		if err := s.stats.UpsertMonthly(ctx, stats); err != nil {
			return nil, err
		}
	}
	return s.stats.Monthly(ctx, householdID, start)
}

// Weekly returns stored statistics for the week containing date.
func (s *StatisticsService) Weekly(ctx context.Context, householdID string, date time.Time) ([]model.WeeklyStatistics, error) {
	start, _ := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodWeek}, date)
	return s.stats.Weekly(ctx, householdID, start)
}

// Monthly returns stored statistics for the month containing date.
func (s *StatisticsService) Monthly(ctx context.Context, householdID string, date time.Time) ([]model.MonthlyStatistics, error) {
	start, _ := recurrence.Bounds(recurrence.Schedule{Rule: recurrence.Daily{}, Period: recurrence.PeriodMonth}, date)
	return s.stats.Monthly(ctx, householdID, start)
}
