// Package notify announces engine events in a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/neosam/haushalt-sub000/internal/model"
)

// Sender is the part of the bot API the announcer needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts completions, rejections and missed periods to one chat. It
// implements consequence.Dispatcher.
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram connects to the bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return NewTelegramWithSender(api, chatID), nil
}

func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chatID: chatID}
}

func (t *Telegram) OnGoodCompletion(_ context.Context, task *model.Task, completion *model.Completion, _ string, streak int) error {
	text := fmt.Sprintf("✅ <b>%s</b> completed %s", escape(completion.UserID), escape(task.Title))
	if streak > 1 {
		text += fmt.Sprintf("\n🔥 streak %d", streak)
	}
	if task.RequiresReview {
		text += "\n👀 waiting for review"
	}
	return t.SendText(text)
}

func (t *Telegram) OnBadCompletion(_ context.Context, task *model.Task, completion *model.Completion, _ string) error {
	return t.SendText(fmt.Sprintf("⚠️ <b>%s</b> did %s", escape(completion.UserID), escape(task.Title)))
}

func (t *Telegram) OnCompletionRejected(_ context.Context, task *model.Task, completion *model.Completion, _ string) error {
	return t.SendText(fmt.Sprintf("↩️ Completion of %s by <b>%s</b> was rejected", escape(task.Title), escape(completion.UserID)))
}

// OnCompletionUndone stays quiet; members undo their own mistakes.
func (t *Telegram) OnCompletionUndone(context.Context, *model.Task, *model.Completion, string) error {
	return nil
}

func (t *Telegram) OnPeriodMissed(_ context.Context, task *model.Task, userID, _ string, result model.PeriodResult) error {
	if task.HabitType.IsInverted() {
		return t.SendText(fmt.Sprintf("🏅 <b>%s</b> avoided %s (%s – %s)",
			escape(userID), escape(task.Title), day(result.PeriodStart), day(result.PeriodEnd)))
	}
	return t.SendText(fmt.Sprintf("❌ <b>%s</b> missed %s (%s – %s, %d/%d)",
		escape(userID), escape(task.Title), day(result.PeriodStart), day(result.PeriodEnd),
		result.CompletionsCount, result.TargetCount))
}

// SendText posts an HTML message to the configured chat.
func (t *Telegram) SendText(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
