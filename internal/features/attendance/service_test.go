package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

func newTestService() (*Service, *economy.Service) {
	cfg := &config.Config{
		AppTimezone:          "UTC",
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		AttendanceBaseReward: 1000,
		AttendanceMaxDays:    7,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	return NewService(NewMemoryStore(), econ, cfg), econ
}

func TestReward(t *testing.T) {
	tests := []struct {
		day  int
		want int64
	}{
		{0, 0},
		{1, 1000},
		{2, 2000},
		{7, 7000},
		{30, 7000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reward(tt.day, 1000, 7), "day %d", tt.day)
	}
}

func TestCheckInStreak(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	res, err := svc.CheckIn(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(1000), res.Net)

	_, err = svc.CheckIn(ctx, 1, day.Add(10*time.Hour))
	assert.ErrorIs(t, err, common.ErrAlreadyChecked)

	res, err = svc.CheckIn(ctx, 1, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.Equal(t, int64(2000), res.Reward)

	res, err = svc.CheckIn(ctx, 1, day.Add(4*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak, "пропуск дня начинает серию заново")
	assert.Equal(t, 2, res.MaxStreak)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(1000+2000+1000), balance)
}

func TestCheckInWithholdsTax(t *testing.T) {
	ctx := context.Background()
	svc, econ := newTestService()
	require.NoError(t, econ.AddTax(ctx, 1, 10_000))

	res, err := svc.CheckIn(ctx, 1, time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(700), res.Net)
	assert.Equal(t, int64(300), res.Withheld)
}

func TestTop(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.CheckIn(ctx, 1, day.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	_, err := svc.CheckIn(ctx, 2, day)
	require.NoError(t, err)

	top, err := svc.Top(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].UserID)
	assert.Equal(t, 3, top[0].Streak)
}
