package consequence

import (
	"context"
	"fmt"

	"github.com/neosam/haushalt-sub000/internal/model"
)

// PointsStore is the ledger the Points dispatcher writes to.
type PointsStore interface {
	Append(ctx context.Context, tx *model.PointTransaction) error
	UnreversedForCompletion(ctx context.Context, completionID string) ([]model.PointTransaction, error)
}

// Points books task rewards and penalties into a points ledger. Entries are
// never edited; rejections and undos append a reversal of exactly what was
// booked for the completion.
type Points struct {
	store PointsStore
}

func NewPoints(store PointsStore) *Points {
	return &Points{store: store}
}

func (p *Points) OnGoodCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string, streak int) error {
	if task.PointsReward == nil || *task.PointsReward == 0 {
		return nil
	}
	return p.book(ctx, task, completion.UserID, householdID, &completion.ID, model.PointsCompletion, *task.PointsReward,
		fmt.Sprintf("completed %q (streak %d)", task.Title, streak))
}

func (p *Points) OnBadCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	if task.PointsPenalty == nil || *task.PointsPenalty == 0 {
		return nil
	}
	return p.book(ctx, task, completion.UserID, householdID, &completion.ID, model.PointsBadCompletion, -*task.PointsPenalty,
		fmt.Sprintf("did %q", task.Title))
}

func (p *Points) OnCompletionRejected(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	return p.reverse(ctx, task, completion, householdID, "completion rejected")
}

func (p *Points) OnCompletionUndone(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	return p.reverse(ctx, task, completion, householdID, "completion undone")
}

// OnPeriodMissed penalizes a missed good habit and rewards an avoided bad one.
func (p *Points) OnPeriodMissed(ctx context.Context, task *model.Task, userID, householdID string, result model.PeriodResult) error {
	period := result.PeriodStart.Format("2006-01-02")
	if task.HabitType.IsInverted() {
		if task.PointsReward == nil || *task.PointsReward == 0 {
			return nil
		}
		return p.book(ctx, task, userID, householdID, nil, model.PointsMissed, *task.PointsReward,
			fmt.Sprintf("avoided %q in period %s", task.Title, period))
	}
	if task.PointsPenalty == nil || *task.PointsPenalty == 0 {
		return nil
	}
	return p.book(ctx, task, userID, householdID, nil, model.PointsMissed, -*task.PointsPenalty,
		fmt.Sprintf("missed %q in period %s", task.Title, period))
}

func (p *Points) book(ctx context.Context, task *model.Task, userID, householdID string, completionID *string, kind model.PointKind, amount int64, reason string) error {
	return p.store.Append(ctx, &model.PointTransaction{
		HouseholdID:  householdID,
		UserID:       userID,
		TaskID:       task.ID,
		CompletionID: completionID,
		Kind:         kind,
		Amount:       amount,
		Reason:       reason,
	})
}

func (p *Points) reverse(ctx context.Context, task *model.Task, completion *model.Completion, householdID, reason string) error {
	entries, err := p.store.UnreversedForCompletion(ctx, completion.ID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		entryID := entry.ID
		if err := p.store.Append(ctx, &model.PointTransaction{
			HouseholdID:  householdID,
			UserID:       completion.UserID,
			TaskID:       task.ID,
			CompletionID: &completion.ID,
			Kind:         model.PointsReversal,
			Amount:       -entry.Amount,
			Reason:       fmt.Sprintf("%s: %q", reason, task.Title),
			ReversesID:   &entryID,
		}); err != nil {
			return err
		}
	}
	return nil
}
