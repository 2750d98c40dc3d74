// Package prediction — рынок прогнозов на два исхода с тотализаторной выплатой.
package prediction

import (
	"time"

	"github.com/google/uuid"
)

// StartRequest — параметры нового рынка.
type StartRequest struct {
	Title    string `validate:"required,max=200"`
	Outcome1 string `validate:"required,max=100"`
	Outcome2 string `validate:"required,max=100"`
	Duration time.Duration
}

// Market — открытый рынок прогнозов дилера.
type Market struct {
	ID       uuid.UUID
	Dealer   int64
	Title    string
	Outcomes [2]string
	ClosesAt time.Time
	Pools    [2]map[int64]int64 // исход → участник → ставка
}

func newMarket(dealer int64, req StartRequest, now time.Time) *Market {
	return &Market{
		ID:       uuid.New(),
		Dealer:   dealer,
		Title:    req.Title,
		Outcomes: [2]string{req.Outcome1, req.Outcome2},
		ClosesAt: now.Add(req.Duration),
		Pools:    [2]map[int64]int64{make(map[int64]int64), make(map[int64]int64)},
	}
}

// PoolTotal возвращает сумму ставок на исход (0 или 1).
func (m *Market) PoolTotal(i int) int64 {
	var total int64
	for _, v := range m.Pools[i] {
		total += v
	}
	return total
}

// Total возвращает сумму всех ставок.
func (m *Market) Total() int64 {
	return m.PoolTotal(0) + m.PoolTotal(1)
}

// Participants возвращает число участников.
func (m *Market) Participants() int {
	return len(m.Pools[0]) + len(m.Pools[1])
}

func (m *Market) clone() Market {
	cp := *m
	for i := range m.Pools {
		cp.Pools[i] = make(map[int64]int64, len(m.Pools[i]))
		for k, v := range m.Pools[i] {
			cp.Pools[i][k] = v
		}
	}
	return cp
}

// Resolution — итог рынка.
type Resolution struct {
	Market   Market
	Outcome  int // 1 или 2
	Total    int64
	Refunded bool            // на победивший исход никто не ставил, банк вернулся дилеру
	Payouts  map[int64]int64 // победитель → выплата
}
