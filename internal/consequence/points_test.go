package consequence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neosam/haushalt-sub000/internal/model"
	"github.com/neosam/haushalt-sub000/internal/repository"
)

func newPoints(t *testing.T) (*Points, *repository.PointsRepository) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "points.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	repo := repository.NewPointsRepository(db)
	return NewPoints(repo), repo
}

func amount(v int64) *int64 { return &v }

func TestPointsReversesTheRejectedCompletion(t *testing.T) {
	ctx := context.Background()
	points, repo := newPoints(t)
	task := &model.Task{ID: "t1", Title: "Dishes", PointsReward: amount(10), PointsPenalty: amount(4)}
	first := &model.Completion{ID: "c1", TaskID: "t1", UserID: "alice"}
	second := &model.Completion{ID: "c2", TaskID: "t1", UserID: "alice"}

	require.NoError(t, points.OnGoodCompletion(ctx, task, first, "h", 1))
	task.PointsReward = amount(25)
	time.Sleep(time.Millisecond)
	require.NoError(t, points.OnGoodCompletion(ctx, task, second, "h", 2))

	balance, err := repo.Balance(ctx, "h", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 35, balance)

	// The older completion carried the old reward.
	require.NoError(t, points.OnCompletionRejected(ctx, task, first, "h"))
	balance, err = repo.Balance(ctx, "h", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 25, balance)

	require.NoError(t, points.OnCompletionUndone(ctx, task, second, "h"))
	// Nothing left to reverse.
	require.NoError(t, points.OnCompletionUndone(ctx, task, second, "h"))
	require.NoError(t, points.OnCompletionRejected(ctx, task, &model.Completion{ID: "unknown", UserID: "alice"}, "h"))

	balance, err = repo.Balance(ctx, "h", "alice")
	require.NoError(t, err)
	require.Zero(t, balance)

	history, err := repo.History(ctx, "h", "alice")
	require.NoError(t, err)
	require.Len(t, history, 4)
}

func TestPointsBadHabitAndMissedPeriods(t *testing.T) {
	ctx := context.Background()
	points, repo := newPoints(t)
	bad := &model.Task{ID: "b1", Title: "Smoking", HabitType: model.HabitBad, PointsReward: amount(3), PointsPenalty: amount(5)}
	good := &model.Task{ID: "g1", Title: "Gym", PointsPenalty: amount(2)}
	smoked := &model.Completion{ID: "c1", TaskID: "b1", UserID: "bob"}

	require.NoError(t, points.OnBadCompletion(ctx, bad, smoked, "h"))
	require.NoError(t, points.OnPeriodMissed(ctx, bad, "bob", "h", model.PeriodResult{}))
	require.NoError(t, points.OnPeriodMissed(ctx, good, "bob", "h", model.PeriodResult{}))
	// No reward configured.
	require.NoError(t, points.OnGoodCompletion(ctx, good, &model.Completion{ID: "c2", TaskID: "g1", UserID: "bob"}, "h", 1))

	balance, err := repo.Balance(ctx, "h", "bob")
	require.NoError(t, err)
	require.EqualValues(t, -5+3-2, balance)

	// Undoing the bad completion gives the penalty back.
	require.NoError(t, points.OnCompletionUndone(ctx, bad, smoked, "h"))
	balance, err = repo.Balance(ctx, "h", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 3-2, balance)
}

type failing struct{ Nop }

func (failing) OnBadCompletion(context.Context, *model.Task, *model.Completion, string) error {
	return errors.New("boom")
}

type counting struct {
	Nop
	calls int
}

func (c *counting) OnBadCompletion(context.Context, *model.Task, *model.Completion, string) error {
	c.calls++
	return nil
}

func TestChainDeliversToAll(t *testing.T) {
	last := &counting{}
	chain := Chain{failing{}, last}

	err := chain.OnBadCompletion(context.Background(), &model.Task{}, &model.Completion{UserID: "u"}, "h")
	require.ErrorContains(t, err, "boom")
	require.Equal(t, 1, last.calls)
	require.NoError(t, chain.OnGoodCompletion(context.Background(), &model.Task{}, &model.Completion{UserID: "u"}, "h", 1))
}
