package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
)

func TestDailyDigest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reminders := NewReminderService(f.tasks, f.stats)
	friday := recurrence.Date(2024, time.January, 19)

	dishes := f.task(t, model.Task{Title: "Dishes & pans", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 1, AssignedUserID: ptr("alice")})
	f.task(t, model.Task{Title: "Bins", Recurrence: recurrence.Of(recurrence.WeeklyOn(time.Friday)), TargetCount: 2})
	f.task(t, model.Task{Title: "Mow lawn", Recurrence: recurrence.Of(recurrence.WeeklyOn(time.Saturday)), TargetCount: 1})
	f.task(t, model.Task{Title: "Paused", Recurrence: recurrence.Of(recurrence.Daily{}), TargetCount: 1, Paused: true})
	f.task(t, model.Task{Title: "Doomscrolling", Recurrence: recurrence.Of(recurrence.Daily{}), HabitType: model.HabitBad})
	f.completeOn(t, dishes, "alice", recurrence.AddDays(friday, -1))
	f.completeOn(t, dishes, "alice", friday)

	digest, err := reminders.DailyDigest(ctx, "house-1", friday)
	require.NoError(t, err)
	require.Contains(t, digest, "2024-01-19")
	require.Contains(t, digest, "Dishes &amp; pans")
	require.Contains(t, digest, "streak 2")
	require.Contains(t, digest, "Bins <i>(×2)</i>")
	require.Contains(t, digest, "Doomscrolling")
	require.NotContains(t, digest, "Mow lawn")
	require.NotContains(t, digest, "Paused")
}

func TestDailyDigestEmpty(t *testing.T) {
	f := newFixture(t)
	digest, err := NewReminderService(f.tasks, f.stats).DailyDigest(context.Background(), "house-1", recurrence.Date(2024, time.January, 19))
	require.NoError(t, err)
	require.Contains(t, digest, "nothing due today")
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("02:30")
	require.NoError(t, err)
	require.Equal(t, "0 30 2 * * *", spec)

	for _, bad := range []string{"", "24:00", "12:60", "noon", "1:2:3"} {
		_, err := buildDailySpec(bad)
		require.Error(t, err, bad)
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	_, err := s.ScheduleDaily("02:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleWeekly(time.Monday, "03:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleMonthly("03:30", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily("25:00", func() {})
	require.Error(t, err)
	require.Equal(t, 3, s.Entries())
}
