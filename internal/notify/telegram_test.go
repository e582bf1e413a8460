package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/neosam/haushalt-sub000/internal/model"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramAnnouncements(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, 42)
	task := &model.Task{Title: "Take out <trash>"}
	alice := &model.Completion{ID: "c1", UserID: "alice"}

	require.NoError(t, tg.OnGoodCompletion(ctx, task, alice, "house-1", 3))
	require.NoError(t, tg.OnCompletionUndone(ctx, task, alice, "house-1"))
	require.NoError(t, tg.OnCompletionRejected(ctx, task, alice, "house-1"))

	require.Len(t, sender.sent, 2)
	first := sender.sent[0]
	require.EqualValues(t, 42, first.ChatID)
	require.Equal(t, tgbotapi.ModeHTML, first.ParseMode)
	require.Contains(t, first.Text, "Take out &lt;trash&gt;")
	require.Contains(t, first.Text, "streak 3")
	require.Contains(t, first.Text, "alice")
	require.Contains(t, sender.sent[1].Text, "rejected")
}

func TestTelegramPeriodMissed(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	tg := NewTelegramWithSender(sender, 1)
	result := model.PeriodResult{
		PeriodStart:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		PeriodEnd:        time.Date(2024, time.January, 21, 0, 0, 0, 0, time.UTC),
		CompletionsCount: 1,
		TargetCount:      2,
	}

	require.NoError(t, tg.OnPeriodMissed(ctx, &model.Task{Title: "Gym"}, "bob", "h", result))
	require.NoError(t, tg.OnPeriodMissed(ctx, &model.Task{Title: "Smoking", HabitType: model.HabitBad}, "bob", "h", result))

	require.Contains(t, sender.sent[0].Text, "missed Gym (2024-01-15 – 2024-01-21, 1/2)")
	require.Contains(t, sender.sent[1].Text, "avoided Smoking")
}

func TestTelegramSendError(t *testing.T) {
	tg := NewTelegramWithSender(&fakeSender{err: errors.New("flood wait")}, 1)
	err := tg.OnBadCompletion(context.Background(), &model.Task{Title: "Snack"}, &model.Completion{UserID: "bob"}, "h")
	require.ErrorContains(t, err, "flood wait")
}
