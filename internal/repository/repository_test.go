package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createTask(t *testing.T, db *gorm.DB, task model.Task) *model.Task {
	t.Helper()
	if task.HouseholdID == "" {
		task.HouseholdID = "house-1"
	}
	require.NoError(t, NewTaskRepository(db).Create(context.Background(), &task))
	return &task
}

func TestTaskRepositoryRoundTripsRecurrence(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)

	task := createTask(t, db, model.Task{
		Title:       "Water plants",
		Recurrence:  recurrence.Of(recurrence.WeekdaySet{Days: []time.Weekday{time.Tuesday, time.Thursday}}),
		TargetCount: 1,
	})
	require.NotEmpty(t, task.ID)

	got, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, recurrence.KindWeekdaySet, got.Recurrence.Kind())
	require.Equal(t, model.HabitGood, got.HabitType)
	require.True(t, got.IsScheduled())

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	households, err := repo.ListHouseholds(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"house-1"}, households)
}

func TestFinalizeReplacesExistingRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	task := createTask(t, db, model.Task{Title: "Dishes", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 1})
	repo := NewPeriodResultRepository(db)
	day := recurrence.Date(2024, time.January, 10)

	_, err := repo.Finalize(ctx, FinalizeInput{
		TaskID: task.ID, PeriodStart: day, PeriodEnd: day,
		Status: model.PeriodFailed, TargetCount: 1, FinalizedBy: model.FinalizedBySystem,
	})
	require.NoError(t, err)

	_, err = repo.Finalize(ctx, FinalizeInput{
		TaskID: task.ID, PeriodStart: day, PeriodEnd: day,
		Status: model.PeriodCompleted, CompletionsCount: 1, TargetCount: 1, FinalizedBy: "user-1",
	})
	require.NoError(t, err)

	var rows []model.PeriodResult
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, model.PeriodCompleted, rows[0].Status)
	require.Equal(t, 1, rows[0].CompletionsCount)
	require.Equal(t, "user-1", rows[0].FinalizedBy)
	require.True(t, day.Equal(rows[0].PeriodStart))

	finalized, err := repo.IsFinalized(ctx, task.ID, day)
	require.NoError(t, err)
	require.True(t, finalized)

	finalized, err = repo.IsFinalized(ctx, task.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.False(t, finalized)
}

func TestCountPeriodResultsByStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	task := createTask(t, db, model.Task{Title: "Walk dog", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 1})
	repo := NewPeriodResultRepository(db)

	statuses := []model.PeriodStatus{
		model.PeriodCompleted, model.PeriodCompleted, model.PeriodFailed,
		model.PeriodSkipped, model.PeriodCompleted,
	}
	start := recurrence.Date(2024, time.March, 1)
	for i, status := range statuses {
		day := recurrence.AddDays(start, i)
		_, err := repo.Finalize(ctx, FinalizeInput{
			TaskID: task.ID, PeriodStart: day, PeriodEnd: day,
			Status: status, TargetCount: 1, FinalizedBy: model.FinalizedBySystem,
		})
		require.NoError(t, err)
	}

	counts, err := repo.Count(ctx, task.ID, start, recurrence.AddDays(start, 3))
	require.NoError(t, err)
	require.Equal(t, PeriodCounts{Completed: 2, Failed: 1, Skipped: 1}, counts)

	counts, err = repo.Count(ctx, task.ID, recurrence.Date(2023, time.January, 1), recurrence.Date(2023, time.December, 31))
	require.NoError(t, err)
	require.Equal(t, PeriodCounts{}, counts)

	recent, err := repo.Recent(ctx, task.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.True(t, recent[0].PeriodStart.Before(recent[2].PeriodStart))
	require.Equal(t, model.PeriodCompleted, recent[2].Status)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	task := createTask(t, db, model.Task{Title: "Laundry", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 1})
	repo := NewPeriodResultRepository(db)
	day := recurrence.Date(2024, time.May, 5)

	_, err := repo.UpdateStatus(ctx, task.ID, day, model.PeriodSkipped, "admin", nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Finalize(ctx, FinalizeInput{
		TaskID: task.ID, PeriodStart: day, PeriodEnd: day,
		Status: model.PeriodFailed, TargetCount: 1, FinalizedBy: model.FinalizedBySystem,
	})
	require.NoError(t, err)

	note := "on vacation"
	updated, err := repo.UpdateStatus(ctx, task.ID, day, model.PeriodSkipped, "admin", &note)
	require.NoError(t, err)
	require.Equal(t, model.PeriodSkipped, updated.Status)
	require.Equal(t, "admin", updated.FinalizedBy)
	require.NotNil(t, updated.Notes)
	require.Equal(t, note, *updated.Notes)

	require.NoError(t, repo.Delete(ctx, task.ID, day))
	_, err = repo.Get(ctx, task.ID, day)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.Delete(ctx, task.ID, day))
}

func TestCompletionRepositoryCountsAndApproval(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	task := createTask(t, db, model.Task{Title: "Vacuum", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 2, RequiresReview: true})
	repo := NewCompletionRepository(db)
	day := recurrence.Date(2024, time.June, 3)
	at := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

	for i, user := range []string{"alice", "alice", "bob"} {
		require.NoError(t, repo.Create(ctx, &model.Completion{
			TaskID: task.ID, UserID: user, DueDate: day,
			CompletedAt: at.Add(time.Duration(i) * time.Minute), Status: model.CompletionPending,
		}))
	}

	n, err := repo.CountByUserInRange(ctx, task.ID, "alice", day, day)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = repo.CountInRange(ctx, task.ID, day, day)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	latest, err := repo.LatestByUserInRange(ctx, task.ID, "alice", day, day)
	require.NoError(t, err)
	require.Equal(t, at.Add(time.Minute), latest.CompletedAt.UTC())

	pending, err := repo.ListPendingByHousehold(ctx, "house-1")
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, "Vacuum", pending[0].Task.Title)

	ok, err := repo.Approve(ctx, latest.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Approve(ctx, latest.ID)
	require.NoError(t, err)
	require.False(t, ok)

	counts, err := repo.DueDateCounts(ctx, task.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, map[time.Time]int{day: 2}, counts)

	require.NoError(t, repo.Delete(ctx, latest.ID))
	_, err = repo.FindByID(ctx, latest.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatisticsUpsertReplacesTaskRows(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStatisticsRepository(db)
	week := recurrence.Date(2024, time.January, 8)
	rate := 0.5

	first := &model.WeeklyStatistics{
		HouseholdID: "house-1", UserID: "alice", WeekStart: week, WeekEnd: recurrence.AddDays(week, 6),
		TotalExpected: 2, TotalCompleted: 1, CompletionRate: &rate, CalculatedAt: time.Now(),
		Tasks: []model.WeeklyStatisticsTask{
			{TaskID: "t1", TaskTitle: "One", Expected: 1, Completed: 1},
			{TaskID: "t2", TaskTitle: "Two", Expected: 1, Completed: 0},
		},
	}
	require.NoError(t, repo.UpsertWeekly(ctx, first))

	second := &model.WeeklyStatistics{
		HouseholdID: "house-1", UserID: "alice", WeekStart: week, WeekEnd: recurrence.AddDays(week, 6),
		TotalExpected: 1, TotalCompleted: 1, CalculatedAt: time.Now(),
		Tasks: []model.WeeklyStatisticsTask{
			{TaskID: "t1", TaskTitle: "One", Expected: 1, Completed: 1},
		},
	}
	require.NoError(t, repo.UpsertWeekly(ctx, second))

	stats, err := repo.Weekly(ctx, "house-1", week)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, first.ID, stats[0].ID)
	require.Equal(t, 1, stats[0].TotalExpected)
	require.Len(t, stats[0].Tasks, 1)

	month := recurrence.Date(2024, time.January, 1)
	require.NoError(t, repo.UpsertMonthly(ctx, &model.MonthlyStatistics{
		HouseholdID: "house-1", UserID: "bob", Month: month, CalculatedAt: time.Now(),
	}))
	monthly, err := repo.Monthly(ctx, "house-1", month)
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	require.Nil(t, monthly[0].CompletionRate)
}

func TestPointsUnreversedForCompletion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPointsRepository(db)
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	first, second := "c1", "c2"

	older := &model.PointTransaction{HouseholdID: "h", UserID: "u", TaskID: "t", CompletionID: &first, Kind: model.PointsCompletion, Amount: 5, CreatedAt: base}
	newer := &model.PointTransaction{HouseholdID: "h", UserID: "u", TaskID: "t", CompletionID: &second, Kind: model.PointsCompletion, Amount: 8, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Append(ctx, older))
	require.NoError(t, repo.Append(ctx, newer))

	got, err := repo.UnreversedForCompletion(ctx, first)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, older.ID, got[0].ID)

	require.NoError(t, repo.Append(ctx, &model.PointTransaction{
		HouseholdID: "h", UserID: "u", TaskID: "t", CompletionID: &first, Kind: model.PointsReversal,
		Amount: -5, ReversesID: &older.ID, CreatedAt: base.Add(2 * time.Hour),
	}))

	got, err = repo.UnreversedForCompletion(ctx, first)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = repo.UnreversedForCompletion(ctx, second)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, newer.ID, got[0].ID)

	balance, err := repo.Balance(ctx, "h", "u")
	require.NoError(t, err)
	require.EqualValues(t, 8, balance)
}
