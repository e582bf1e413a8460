package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
	"github.com/neosam/haushalt-sub000/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	stats    *StatisticsService
}

func NewReminderService(taskRepo *repository.TaskRepository, stats *StatisticsService) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, stats: stats}
}

// DailyDigest lists the household's tasks due today as telegram HTML.
func (s *ReminderService) DailyDigest(ctx context.Context, householdID string, today time.Time) (string, error) {
	today = recurrence.DateOf(today)
	tasks, err := s.taskRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return "", err
	}

	var good, bad []model.Task
	for _, task := range tasks {
		if task.Archived || task.Paused || !task.IsScheduled() {
			continue
		}
		if !recurrence.IsDue(task.Schedule(), today) {
			continue
		}
		if task.HabitType.IsInverted() {
			bad = append(bad, task)
		} else {
			good = append(good, task)
		}
	}
	byTitle := func(list []model.Task) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	}
	byTitle(good)
	byTitle(bad)

	var builder strings.Builder
	builder.WriteString("📋 <b>Due today</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format(recurrence.DateLayout)))

	if len(good) == 0 {
		builder.WriteString("— nothing due today\n")
	}
	for _, task := range good {
		line, err := s.formatTask(ctx, task, today)
		if err != nil {
			return "", err
		}
		builder.WriteString(line)
	}

	if len(bad) > 0 {
		builder.WriteString("\n🚫 <b>Habits to avoid</b>\n")
		for _, task := range bad {
			builder.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(strings.TrimSpace(task.Title))))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func (s *ReminderService) formatTask(ctx context.Context, task model.Task, today time.Time) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("♻️ %s", html.EscapeString(strings.TrimSpace(task.Title))))
	if task.TargetCount > 1 {
		sb.WriteString(fmt.Sprintf(" <i>(×%d)</i>", task.TargetCount))
	}

	if task.AssignedUserID != nil {
		streak, err := s.stats.CurrentStreak(ctx, &task, *task.AssignedUserID, today)
		if err != nil {
			return "", err
		}
		if streak > 0 {
			sb.WriteString(fmt.Sprintf("\n   🔥 streak %d", streak))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String(), nil
}
