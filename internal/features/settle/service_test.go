package settle

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
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

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPayoutsAroundMean(t *testing.T) {
	mean, payouts := Payouts(decimal.NewFromInt(1), map[int64]decimal.Decimal{
		1: dec(10), 2: dec(20), 3: dec(30),
	})
	assert.True(t, mean.Equal(dec(20)))
	assert.Equal(t, map[int64]int64{1: -1000, 2: 0, 3: 1000}, payouts)

	var sum int64
	for _, p := range payouts {
		sum += p
	}
	assert.Zero(t, sum)
}

func TestPayoutsFractional(t *testing.T) {
	_, payouts := Payouts(decimal.RequireFromString("0.5"), map[int64]decimal.Decimal{
		1: decimal.RequireFromString("1.5"), 2: decimal.RequireFromString("2.25"),
	})
	// mean 1.875: 0.5 · ∓0.375 · 100 = ∓18.75
	assert.Equal(t, int64(-19), payouts[1])
	assert.Equal(t, int64(19), payouts[2])
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Start(1, dec(1))
	require.NoError(t, err)
	_, err = svc.Start(1, dec(2))
	assert.ErrorIs(t, err, common.ErrSessionExists)

	_, err = svc.Join(2, 10, dec(5))
	assert.ErrorIs(t, err, common.ErrNoSession)

	_, err = svc.Join(1, 10, dec(5))
	require.NoError(t, err)
	summary, err := svc.Join(1, 10, dec(7))
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)
	assert.True(t, summary.Entries[0].Value.Equal(dec(7)))

	_, err = svc.Leave(1, 11)
	assert.ErrorIs(t, err, common.ErrNotParticipant)
	_, err = svc.Leave(1, 10)
	require.NoError(t, err)

	assert.Len(t, svc.List(), 1)
	require.NoError(t, svc.Cancel(1))
	assert.ErrorIs(t, svc.Cancel(1), common.ErrNoSession)
	assert.Empty(t, svc.List())
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	require.NoError(t, econ.SetBalance(ctx, 10, 5_000))
	require.NoError(t, econ.SetBalance(ctx, 20, 5_000))
	require.NoError(t, econ.SetBalance(ctx, 30, 5_000))

	_, err := svc.Start(1, dec(1))
	require.NoError(t, err)
	for id, v := range map[int64]int64{10: 10, 20: 20, 30: 30} {
		_, err := svc.Join(1, id, dec(v))
		require.NoError(t, err)
	}

	result, err := svc.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Settled)
	assert.Empty(t, result.Debts)

	for id, want := range map[int64]int64{10: 4_000, 20: 5_000, 30: 6_000} {
		balance, _ := econ.GetBalance(ctx, id)
		assert.Equal(t, want, balance, "user %d", id)
	}

	_, err = svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)
}

func TestConfirmShortfallBecomesTax(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	require.NoError(t, econ.SetBalance(ctx, 10, 300))

	_, err := svc.Start(1, dec(1))
	require.NoError(t, err)
	_, err = svc.Join(1, 10, dec(10))
	require.NoError(t, err)
	_, err = svc.Join(1, 20, dec(30))
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{10: 700}, result.Debts)

	account, err := econ.GetAccount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance)
	assert.Equal(t, int64(700), account.Tax)

	winner, _ := econ.GetBalance(ctx, 20)
	assert.Equal(t, int64(1_000), winner)
}

func TestConfirmSingleParticipantMovesNoMoney(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService(t)
	_, err := svc.Start(1, dec(1))
	require.NoError(t, err)
	_, err = svc.Join(1, 10, dec(100))
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Settled)

	balance, _ := econ.GetBalance(ctx, 10)
	assert.Zero(t, balance)
	_, err = svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)
}

func TestOversizedInputRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Start(1, decimal.RequireFromString("1e20"))
	assert.ErrorIs(t, err, common.ErrAmountTooLarge)
	_, err = svc.Info(1)
	assert.ErrorIs(t, err, common.ErrNoSession)

	_, err = svc.Start(1, MaxMultiplier)
	require.NoError(t, err)
	_, err = svc.Join(1, 2, decimal.RequireFromString("-1e13"))
	assert.ErrorIs(t, err, common.ErrAmountTooLarge)

	_, err = svc.Join(1, 2, MaxValue)
	require.NoError(t, err)
	summary, err := svc.Join(1, 3, MaxValue.Neg())
	require.NoError(t, err)
	for _, e := range summary.Entries {
		assert.Equal(t, int64(100_000_000_000_000_000), abs(e.Payout), "participant %d", e.Participant)
	}
}

func TestPayoutsClampInsteadOfWrapping(t *testing.T) {
	_, payouts := Payouts(decimal.RequireFromString("1e30"), map[int64]decimal.Decimal{
		1: dec(0), 2: dec(2),
	})
	assert.Equal(t, int64(math.MinInt64), payouts[1])
	assert.Equal(t, int64(math.MaxInt64), payouts[2])
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
