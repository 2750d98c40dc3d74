package tax

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

func TestTaxBounds(t *testing.T) {
	assert.Equal(t, int64(0), Tax(0))
	assert.Equal(t, int64(0), Tax(-5_000))
	assert.Less(t, Tax(100_000_000), int64(100_000_000))
	assert.Greater(t, Tax(100_000_000), int64(0))
	assert.InDelta(t, 996, Tax(10_000), 1)
}

func TestTaxMonotone(t *testing.T) {
	prev := Tax(0)
	for a := int64(0); a <= 2_000_000_000; a += 997_331 {
		cur := Tax(a)
		require.GreaterOrEqual(t, cur, prev, "assets=%d", a)
		require.LessOrEqual(t, cur, a, "assets=%d", a)
		prev = cur
	}
	prev = Tax(0)
	for a := int64(0); a <= 100_000; a += 7 {
		cur := Tax(a)
		require.GreaterOrEqual(t, cur, prev, "assets=%d", a)
		prev = cur
	}
}

func TestCollectTaxes(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{EconomyIncomeTaxRate: 0.3, EconomyRankingLimit: 10, EconomyHistoryLimit: 10}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	rec := &notify.Recorder{}
	svc := NewService(econ, rec)

	require.NoError(t, econ.SetBalance(ctx, 1, 1_000_000))
	require.NoError(t, econ.SetInt(ctx, economy.SettingPPLIndex, 5))
	require.NoError(t, econ.AddInventory(ctx, 1, economy.PPLItem, 10, 0))
	require.NoError(t, econ.EnsureAccount(ctx, 2))

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	statements, err := svc.CollectTaxes(ctx, now)
	require.NoError(t, err)
	require.Len(t, statements, 2)

	want := Tax(1_000_000 + 10*500)
	assert.Equal(t, int64(1_005_000), statements[0].Assets)
	assert.Equal(t, want, statements[0].Tax)

	owed, err := econ.GetTax(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, owed)

	owed, err = econ.GetTax(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, owed)

	require.Len(t, rec.DMsTo(1), 1)
	assert.Contains(t, rec.DMsTo(1)[0], "03.2026")
	assert.Len(t, rec.DMsTo(2), 1)
}
