package scratch

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

func newTestService(t *testing.T, answer int, answerErr error) (*Service, *economy.Service, *MemoryStore) {
	t.Helper()
	cfg := &config.Config{
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		ScratchMaxShare:      0.1,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	store := NewMemoryStore()
	prompter := notify.PrompterFunc(func(_ context.Context, _ string, _ int64, _ string, options []string) (int, error) {
		require.Len(t, options, CardSize)
		return answer, answerErr
	})
	svc := NewService(store, econ, prompter, cfg)
	// Без перемешивания: поле i хранит множитель i
	svc.shuffle = func(*Card) {}
	return svc, econ, store
}

func TestMultiplier(t *testing.T) {
	want := []string{"0.09", "0.36", "0.82", "1.45", "2.27"}
	for k, w := range want {
		assert.Equal(t, w, Multiplier(k).StringFixed(2))
	}
}

func TestPlayPaysChosenMultiplier(t *testing.T) {
	ctx := context.Background()
	svc, econ, store := newTestService(t, 4, nil)
	require.NoError(t, econ.SetBalance(ctx, 1, 11_000))

	result, err := svc.Play(ctx, "chan", 1, 1_100)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Choice)
	assert.Equal(t, int64(2_500), result.Win)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(11_000-1_100+2_500), balance)

	stats, err := store.GetStats(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.TotalPlays)
	assert.Equal(t, int64(2_500), stats.BiggestWin)
}

func TestPlayRejectsPriceAboveShare(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService(t, 0, nil)
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))

	_, err := svc.Play(ctx, "chan", 1, 1_001)
	assert.ErrorIs(t, err, common.ErrPriceTooHigh)
	_, err = svc.Play(ctx, "chan", 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(10_000), balance)
}

func TestPlayTimeoutKeepsPrice(t *testing.T) {
	ctx := context.Background()
	svc, econ, store := newTestService(t, 0, common.ErrPromptTimeout)
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))

	result, err := svc.Play(ctx, "chan", 1, 1_000)
	assert.ErrorIs(t, err, common.ErrPromptTimeout)
	require.NotNil(t, result)
	assert.Equal(t, -1, result.Choice)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(9_000), balance)

	stats, _ := store.GetStats(ctx, 1)
	require.NotNil(t, stats)
	assert.Zero(t, stats.TotalWon)
}

func TestShuffleKeepsAllPrizes(t *testing.T) {
	cfg := &config.Config{ScratchMaxShare: 0.1}
	svc := NewService(NewMemoryStore(), nil, nil, cfg)
	for i := 0; i < 50; i++ {
		card := Card{0, 1, 2, 3, 4}
		svc.shuffle(&card)
		assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, card[:])
	}
}
