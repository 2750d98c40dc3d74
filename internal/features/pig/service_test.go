package pig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// script отвечает по очереди заданными вариантами, затем таймаутом.
func script(answers ...int) notify.Prompter {
	return notify.PrompterFunc(func(context.Context, string, int64, string, []string) (int, error) {
		if len(answers) == 0 {
			return 0, common.ErrPromptTimeout
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	})
}

func newTestService(t *testing.T, prompter notify.Prompter, dice ...int) (*Service, *economy.Service) {
	t.Helper()
	cfg := &config.Config{
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		PigStartCost:         100_000,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	require.NoError(t, econ.SetBalance(context.Background(), 1, 150_000))
	svc := NewService(NewMemoryStore(), econ, prompter, cfg)
	svc.roll = func() int {
		d := dice[0]
		dice = dice[1:]
		return d
	}
	return svc, econ
}

func TestPlayStopRecordsBest(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t, script(OptionRoll, OptionRoll, OptionStop), 4, 6)

	game, err := svc.Play(ctx, "chan", 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStopped, game.Outcome)
	assert.Equal(t, int64(10), game.Score)
	assert.True(t, game.NewBest)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(50_000), balance)

	rec, ok, err := svc.Best(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), rec.Score)
}

func TestPlayBustDoesNotRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, script(OptionRoll, OptionRoll), 5, 1)

	game, err := svc.Play(ctx, "chan", 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBusted, game.Outcome)
	assert.Zero(t, game.Score)
	assert.Equal(t, []int{5, 1}, game.Rolls)

	rec, ok, err := svc.Best(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, rec.Score)
}

func TestPlayTimeoutKeepsFee(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t, script(OptionRoll), 3)

	game, err := svc.Play(ctx, "chan", 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, game.Outcome)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(50_000), balance)
}

func TestPlayNeedsStartCost(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t, script())
	require.NoError(t, econ.SetBalance(ctx, 1, 99_999))

	_, err := svc.Play(ctx, "chan", 1)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestBestOnlyGrows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Ensure(ctx, 1))
	require.NoError(t, store.Ensure(ctx, 2))

	improved, err := store.UpdateBest(ctx, 1, 20)
	require.NoError(t, err)
	assert.True(t, improved)
	improved, err = store.UpdateBest(ctx, 1, 15)
	require.NoError(t, err)
	assert.False(t, improved)
	_, err = store.UpdateBest(ctx, 2, 30)
	require.NoError(t, err)

	top, err := store.Top(ctx, TopLimit)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(20), top[1].Score)
}
