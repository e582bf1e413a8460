// Package consequence defines what happens to members when tasks are
// completed, rejected, undone or missed.
package consequence

import (
	"context"
	"errors"

	"github.com/neosam/haushalt-sub000/internal/model"
)

// Dispatcher receives completion events after they are committed. Callers
// log returned errors and carry on; a failing dispatcher never undoes a
// recorded completion. The member is completion.UserID.
type Dispatcher interface {
	// OnGoodCompletion fires for a completion of a good habit. streak is the
	// member's current streak including this completion.
	OnGoodCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string, streak int) error
	// OnBadCompletion fires when a bad habit was performed.
	OnBadCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error
	// OnCompletionRejected fires after a pending completion was removed by review.
	OnCompletionRejected(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error
	// OnCompletionUndone fires after a member took back a completion.
	OnCompletionUndone(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error
	// OnPeriodMissed fires when a lapsed period was finalized as failed.
	OnPeriodMissed(ctx context.Context, task *model.Task, userID, householdID string, result model.PeriodResult) error
}

// Nop ignores every event.
type Nop struct{}

func (Nop) OnGoodCompletion(context.Context, *model.Task, *model.Completion, string, int) error {
	return nil
}
func (Nop) OnBadCompletion(context.Context, *model.Task, *model.Completion, string) error      { return nil }
func (Nop) OnCompletionRejected(context.Context, *model.Task, *model.Completion, string) error { return nil }
func (Nop) OnCompletionUndone(context.Context, *model.Task, *model.Completion, string) error   { return nil }
func (Nop) OnPeriodMissed(context.Context, *model.Task, string, string, model.PeriodResult) error {
	return nil
}

// Chain delivers each event to every dispatcher in order, even when an
// earlier one fails, and joins the errors.
type Chain []Dispatcher

func (c Chain) OnGoodCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string, streak int) error {
	var errs []error
	for _, d := range c {
		errs = append(errs, d.OnGoodCompletion(ctx, task, completion, householdID, streak))
	}
	return errors.Join(errs...)
}

func (c Chain) OnBadCompletion(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	var errs []error
	for _, d := range c {
		errs = append(errs, d.OnBadCompletion(ctx, task, completion, householdID))
	}
	return errors.Join(errs...)
}

func (c Chain) OnCompletionRejected(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	var errs []error
	for _, d := range c {
		errs = append(errs, d.OnCompletionRejected(ctx, task, completion, householdID))
	}
	return errors.Join(errs...)
}

func (c Chain) OnCompletionUndone(ctx context.Context, task *model.Task, completion *model.Completion, householdID string) error {
	var errs []error
	for _, d := range c {
		errs = append(errs, d.OnCompletionUndone(ctx, task, completion, householdID))
	}
	return errors.Join(errs...)
}

func (c Chain) OnPeriodMissed(ctx context.Context, task *model.Task, userID, householdID string, result model.PeriodResult) error {
	var errs []error
	for _, d := range c {
		errs = append(errs, d.OnPeriodMissed(ctx, task, userID, householdID, result))
	}
	return errors.Join(errs...)
}
