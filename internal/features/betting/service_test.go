package betting

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

func newTestService(t *testing.T) (*Service, *economy.Service) {
	t.Helper()
	cfg := &config.Config{EconomyIncomeTaxRate: 0.3, EconomyRankingLimit: 10, EconomyHistoryLimit: 10}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	return NewService(econ), econ
}

func TestRaiseAndInfo(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	require.NoError(t, econ.SetBalance(ctx, 10, 1_000))
	require.NoError(t, econ.SetBalance(ctx, 20, 1_000))

	_, err := svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)

	_, err = svc.Raise(ctx, 1, 10, 300)
	require.NoError(t, err)
	_, err = svc.Raise(ctx, 1, 20, 500)
	require.NoError(t, err)
	summary, err := svc.Raise(ctx, 1, 10, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(900), summary.Total)
	assert.Equal(t, int64(500), summary.Max)
	assert.Equal(t, []Stake{
		{Better: 10, Amount: 400, Delta: -100},
		{Better: 20, Amount: 500, Delta: 0},
	}, summary.Stakes)

	balance, _ := econ.GetBalance(ctx, 10)
	assert.Equal(t, int64(600), balance)
}

func TestRaiseRejectsWithoutChange(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	require.NoError(t, econ.SetBalance(ctx, 10, 100))

	_, err := svc.Raise(ctx, 1, 10, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Raise(ctx, 1, 10, 101)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	_, err = svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)
	balance, _ := econ.GetBalance(ctx, 10)
	assert.Equal(t, int64(100), balance)
}

func TestUnroll(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	require.NoError(t, econ.SetBalance(ctx, 10, 1_000))
	require.NoError(t, econ.SetBalance(ctx, 20, 1_000))
	_, err := svc.Raise(ctx, 1, 10, 300)
	require.NoError(t, err)
	_, err = svc.Raise(ctx, 1, 20, 200)
	require.NoError(t, err)

	_, err = svc.Unroll(ctx, 2, 30)
	assert.ErrorIs(t, err, common.ErrNoSession)

	total, err := svc.Unroll(ctx, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(500), total)

	balance, _ := econ.GetBalance(ctx, 30)
	assert.Equal(t, int64(500), balance)

	_, err = svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)
}

func TestConcurrentRaisesConserveMoney(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	for id := int64(100); id < 120; id++ {
		require.NoError(t, econ.SetBalance(ctx, id, 1_000))
	}

	var wg sync.WaitGroup
	for id := int64(100); id < 120; id++ {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(better int64) {
				defer wg.Done()
				_, _ = svc.Raise(ctx, 1, better, 300)
			}(id)
		}
	}
	wg.Wait()

	summary, err := svc.Info(1)
	require.NoError(t, err)

	var left int64
	for id := int64(100); id < 120; id++ {
		b, _ := econ.GetBalance(ctx, id)
		assert.GreaterOrEqual(t, b, int64(0))
		left += b
	}
	assert.Equal(t, int64(20*1_000), left+summary.Total)
	assert.Equal(t, int64(20*900), summary.Total)
}
