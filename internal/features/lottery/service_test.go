package lottery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

var winning = Numbers{1, 2, 3, 4, 5, 6}

func newTestService() (*Service, *economy.Service, *notify.Recorder) {
	cfg := &config.Config{
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		LotteryPrice:         2000,
		LotteryMaxTickets:    10,
		LotteryFeeRate:       -0.1,
		LotteryDrawInterval:  7 * 24 * time.Hour,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	rec := &notify.Recorder{}
	svc := NewService(NewMemoryStore(), econ, rec, cfg)
	svc.pick = func() Numbers { return append(Numbers(nil), winning...) }
	return svc, econ, rec
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity(winning, winning), 1e-12)

	near := Similarity(winning, Numbers{2, 3, 4, 5, 6, 7})
	far := Similarity(winning, Numbers{40, 45, 50, 55, 60, 65})
	assert.InDelta(t, math.Exp(-0.08), near, 1e-12)
	assert.Less(t, far, near)
	assert.Equal(t, Similarity(winning, Numbers{2, 3, 4, 5, 6, 7}), Similarity(Numbers{2, 3, 4, 5, 6, 7}, winning))

	// 100 и 1 соседние по кругу
	assert.InDelta(t, math.Exp(-0.08), Similarity(winning, Numbers{100, 1, 2, 3, 4, 5}), 1e-12)
}

func TestParseNumbers(t *testing.T) {
	v := validator.New()

	got, ok := ParseNumbers(v, []int{42, 7, 100, 1, 55, 13})
	require.True(t, ok)
	assert.Equal(t, Numbers{1, 7, 13, 42, 55, 100}, got)

	for _, bad := range [][]int{
		{1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5, 5},
		{0, 2, 3, 4, 5, 6},
		{1, 2, 3, 4, 5, 101},
		{1, 2, 3, 4, 5, 6, 7},
	} {
		_, ok := ParseNumbers(v, bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestRandomNumbers(t *testing.T) {
	v := validator.New()
	for i := 0; i < 100; i++ {
		n := RandomNumbers()
		_, ok := ParseNumbers(v, n)
		require.True(t, ok, "%v", n)
		assert.IsIncreasing(t, []int(n))
	}
}

func TestBuyRespectsTicketCap(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 100_000))

	_, err := svc.BuyAuto(ctx, 1, 9)
	require.NoError(t, err)

	_, err = svc.BuyAuto(ctx, 1, 2)
	assert.ErrorIs(t, err, common.ErrTooManyTickets)

	_, err = svc.BuyManual(ctx, 1, []int{10, 20, 30, 40, 50, 60})
	require.NoError(t, err)

	tickets, err := svc.MyTickets(ctx, 1)
	require.NoError(t, err)
	var held int64
	for _, tk := range tickets {
		held += tk.Quantity
	}
	assert.Equal(t, int64(10), held)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(100_000-10*2000), balance)
}

func TestBuyChecksBalanceBeforeDebit(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 5_000))

	_, err := svc.BuyAuto(ctx, 1, 3)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(5_000), balance)
	tickets, _ := svc.MyTickets(ctx, 1)
	assert.Empty(t, tickets)

	_, err = svc.BuyManual(ctx, 1, []int{1, 1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, common.ErrInvalidTicket)
	_, err = svc.BuyAuto(ctx, 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestBuyAutoRejectsOversizedCountBeforePicking(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 100_000))

	picks := 0
	svc.pick = func() Numbers {
		picks++
		return append(Numbers(nil), winning...)
	}

	for _, count := range []int{11, 5_000_000, math.MaxInt} {
		_, err := svc.BuyAuto(ctx, 1, count)
		assert.ErrorIs(t, err, common.ErrTooManyTickets, "count=%d", count)
	}
	assert.Zero(t, picks)

	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(100_000), balance)
}

func TestBuyDebitsOnce(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))

	_, err := svc.BuyAuto(ctx, 1, 3)
	require.NoError(t, err)

	history, err := econ.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, economy.TxTypeLottery, history[0].Type)
	assert.Equal(t, int64(6_000), history[0].Amount)
}

// failingStore ломается на n-й записи билета.
type failingStore struct {
	*MemoryStore
	failAt int
	calls  int
}

func (f *failingStore) AddTicket(ctx context.Context, userID int64, numbers Numbers, quantity int64) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.AddTicket(ctx, userID, numbers, quantity)
}

func TestBuyRefundsTicketsNotStored(t *testing.T) {
	ctx := context.Background()
	_, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))

	store := &failingStore{MemoryStore: NewMemoryStore(), failAt: 2}
	cfg := &config.Config{LotteryPrice: 2000, LotteryMaxTickets: 10}
	svc := NewService(store, econ, &notify.Recorder{}, cfg)

	_, err := svc.BuyAuto(ctx, 1, 3)
	require.Error(t, err)

	// Первый билет записан и оплачен, за два остальных деньги вернулись
	tickets, _ := svc.MyTickets(ctx, 1)
	require.Len(t, tickets, 1)
	balance, _ := econ.GetBalance(ctx, 1)
	assert.Equal(t, int64(8_000), balance)
}

func TestIdenticalTicketsAccumulate(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService()
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))

	_, err := svc.BuyAuto(ctx, 1, 2)
	require.NoError(t, err)

	tickets, err := svc.MyTickets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(2), tickets[0].Quantity)
}

func TestResolve(t *testing.T) {
	tickets := []Ticket{
		{UserID: 1, Numbers: winning, Quantity: 2},
		{UserID: 2, Numbers: winning, Quantity: 1},
	}
	count, pool, winners := Resolve(winning, tickets, 2000, -0.1)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(6600), pool)
	require.Len(t, winners, 2)
	assert.Equal(t, int64(1), winners[0].UserID)
	assert.Equal(t, int64(4400), winners[0].Payout)
	assert.Equal(t, int64(2200), winners[1].Payout)
}

func TestDraw(t *testing.T) {
	ctx := context.Background()
	svc, econ, rec := newTestService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, econ.SetBalance(ctx, 1, 2000))
	require.NoError(t, econ.SetBalance(ctx, 2, 2000))
	_, err := svc.BuyManual(ctx, 1, winning)
	require.NoError(t, err)
	_, err = svc.BuyManual(ctx, 2, []int{40, 45, 50, 55, 60, 65})
	require.NoError(t, err)

	d, err := svc.Draw(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4400), d.Pool)
	require.Len(t, d.Winners, 2)

	b1, _ := econ.GetBalance(ctx, 1)
	b2, _ := econ.GetBalance(ctx, 2)
	assert.Greater(t, b1, b2)
	assert.InDelta(t, 4400, b1+b2, 1)

	all, err := svc.store.AllTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Len(t, rec.DMsTo(1), 1)
	assert.Len(t, rec.DMsTo(2), 1)
	require.Len(t, rec.Broadcasts, 1)
	assert.Contains(t, rec.Broadcasts[0], "1, 2, 3, 4, 5, 6")

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Tickets)
	require.NotNil(t, st.LastDraw)
	assert.True(t, now.Equal(*st.LastDraw))
	assert.Equal(t, winning, st.LastNumbers)
}

func TestCheckDraw(t *testing.T) {
	ctx := context.Background()
	svc, econ, rec := newTestService()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := svc.CheckDraw(ctx, start)
	require.NoError(t, err)
	require.NotNil(t, d, "без прошлого розыгрыша тянем сразу")
	assert.Empty(t, rec.Broadcasts)

	d, err = svc.CheckDraw(ctx, start.Add(6*24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, d)

	last, ok, err := econ.GetTime(ctx, SettingLastDraw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, start.Equal(last))

	d, err = svc.CheckDraw(ctx, start.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, d)
}
