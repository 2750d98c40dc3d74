package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

const dealer = int64(1)

type testEnv struct {
	svc   *Service
	econ  *economy.Service
	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		PredictionFee:        500,
	}
	env := &testEnv{
		econ:  economy.NewService(economy.NewMemoryStore(), cfg),
		clock: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.econ, cfg)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	require.NoError(t, e.econ.SetBalance(context.Background(), dealer, 500))
	_, err := e.svc.Start(context.Background(), dealer, StartRequest{
		Title: "Кто победит?", Outcome1: "Красные", Outcome2: "Синие", Duration: time.Minute,
	})
	require.NoError(t, err)
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	req := StartRequest{Title: "Матч", Outcome1: "да", Outcome2: "нет", Duration: time.Minute}

	t.Run("missing outcome", func(t *testing.T) {
		_, err := env.svc.Start(ctx, dealer, StartRequest{Title: "Матч", Outcome1: "да", Duration: time.Minute})
		assert.ErrorIs(t, err, common.ErrInvalidMarket)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		bad := req
		bad.Duration = 0
		_, err := env.svc.Start(ctx, dealer, bad)
		assert.ErrorIs(t, err, common.ErrInvalidDuration)
	})

	t.Run("fee not affordable", func(t *testing.T) {
		require.NoError(t, env.econ.SetBalance(ctx, dealer, 499))
		_, err := env.svc.Start(ctx, dealer, req)
		assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	})

	t.Run("fee charged once", func(t *testing.T) {
		require.NoError(t, env.econ.SetBalance(ctx, dealer, 700))
		market, err := env.svc.Start(ctx, dealer, req)
		require.NoError(t, err)
		assert.Equal(t, env.clock.Add(time.Minute), market.ClosesAt)

		_, err = env.svc.Start(ctx, dealer, req)
		assert.ErrorIs(t, err, common.ErrSessionExists)

		balance, _ := env.econ.GetBalance(ctx, dealer)
		assert.Equal(t, int64(200), balance)
	})
}

func TestStakeCheckOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.econ.SetBalance(ctx, 10, 100))

	_, err := env.svc.Stake(ctx, dealer, 10, 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = env.svc.Stake(ctx, dealer, 10, 1, 1_000)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	_, err = env.svc.Stake(ctx, dealer, 10, 1, 50)
	assert.ErrorIs(t, err, common.ErrNoSession)

	env.start(t)
	_, err = env.svc.Stake(ctx, dealer, 10, 3, 50)
	assert.ErrorIs(t, err, common.ErrInvalidOutcome)

	env.clock = env.clock.Add(2 * time.Minute)
	_, err = env.svc.Stake(ctx, dealer, 10, 3, 50)
	assert.ErrorIs(t, err, common.ErrMarketClosed)

	_, err = env.svc.Extend(dealer, 0)
	assert.ErrorIs(t, err, common.ErrInvalidDuration)
	_, err = env.svc.Extend(dealer, 5*time.Minute)
	require.NoError(t, err)

	market, err := env.svc.Stake(ctx, dealer, 10, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), market.Pools[1][10])

	balance, _ := env.econ.GetBalance(ctx, 10)
	assert.Equal(t, int64(50), balance)
}

func TestEndPaysWinnersProportionally(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.start(t)
	for id, amount := range map[int64]int64{10: 100, 20: 100, 30: 50} {
		require.NoError(t, env.econ.SetBalance(ctx, id, amount))
	}
	_, err := env.svc.Stake(ctx, dealer, 10, 1, 100)
	require.NoError(t, err)
	_, err = env.svc.Stake(ctx, dealer, 20, 1, 100)
	require.NoError(t, err)
	_, err = env.svc.Stake(ctx, dealer, 30, 2, 50)
	require.NoError(t, err)

	_, err = env.svc.End(ctx, dealer, 0)
	assert.ErrorIs(t, err, common.ErrInvalidOutcome)

	res, err := env.svc.End(ctx, dealer, 1)
	require.NoError(t, err)
	assert.False(t, res.Refunded)
	assert.Equal(t, int64(250), res.Total)
	assert.Equal(t, map[int64]int64{10: 125, 20: 125}, res.Payouts)

	for id, want := range map[int64]int64{10: 125, 20: 125, 30: 0} {
		balance, _ := env.econ.GetBalance(ctx, id)
		assert.Equal(t, want, balance, "user %d", id)
	}

	_, err = env.svc.Info(dealer)
	assert.ErrorIs(t, err, common.ErrNoSession)
}

func TestEndWithEmptyWinningPoolRefundsDealer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.start(t)
	require.NoError(t, env.econ.SetBalance(ctx, 30, 50))
	_, err := env.svc.Stake(ctx, dealer, 30, 2, 50)
	require.NoError(t, err)

	res, err := env.svc.End(ctx, dealer, 1)
	require.NoError(t, err)
	assert.True(t, res.Refunded)

	balance, _ := env.econ.GetBalance(ctx, dealer)
	assert.Equal(t, int64(50), balance)
}

func TestPayoutsNeverExceedPot(t *testing.T) {
	payouts := Payouts(map[int64]int64{1: 1, 2: 1, 3: 1}, 10, 3)
	var sum int64
	for _, p := range payouts {
		sum += p
	}
	assert.Equal(t, map[int64]int64{1: 3, 2: 3, 3: 3}, payouts)
	assert.LessOrEqual(t, sum, int64(10))
}

func TestStakeAndExtendConcurrently(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.start(t)
	require.NoError(t, env.econ.SetBalance(ctx, 2, 1_000))

	const rounds = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := env.svc.Extend(dealer, time.Second)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := env.svc.Stake(ctx, dealer, 2, 1, 1)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	m, err := env.svc.Info(dealer)
	require.NoError(t, err)
	assert.Equal(t, int64(rounds), m.PoolTotal(0))
	assert.Equal(t, env.clock.Add(time.Minute+rounds*time.Second), m.ClosesAt)
}

// brokenPayoutStore отказывает в зачислении одному пользователю.
type brokenPayoutStore struct {
	*economy.MemoryStore
	userID int64
}

func (b *brokenPayoutStore) AddBalance(ctx context.Context, userID, delta int64, txType, description string) error {
	if userID == b.userID && delta > 0 {
		return errors.New("ledger unavailable")
	}
	return b.MemoryStore.AddBalance(ctx, userID, delta, txType, description)
}

func TestEndReportsFailedPayouts(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{EconomyHistoryLimit: 10, PredictionFee: 500}
	econ := economy.NewService(&brokenPayoutStore{MemoryStore: economy.NewMemoryStore(), userID: 20}, cfg)
	svc := NewService(econ, cfg)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	require.NoError(t, econ.SetBalance(ctx, dealer, 500))
	_, err := svc.Start(ctx, dealer, StartRequest{Title: "Матч", Outcome1: "да", Outcome2: "нет", Duration: time.Minute})
	require.NoError(t, err)
	for _, id := range []int64{10, 20} {
		require.NoError(t, econ.SetBalance(ctx, id, 100))
		_, err := svc.Stake(ctx, dealer, id, 1, 100)
		require.NoError(t, err)
	}

	res, err := svc.End(ctx, dealer, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id=20")
	assert.Equal(t, 1, res.Outcome)
	assert.Equal(t, map[int64]int64{10: 100, 20: 100}, res.Payouts)

	paid, _ := econ.GetBalance(ctx, 10)
	assert.Equal(t, int64(100), paid)
	_, err = svc.Info(dealer)
	assert.ErrorIs(t, err, common.ErrNoSession)
}
