// Package betting ведёт пулы ставок «на дилера»: участники скидываются,
// дилер потом отдаёт весь банк одному получателю.
package betting

import (
	"time"

	"github.com/google/uuid"
)

// Pool — открытый пул ставок одного дилера.
type Pool struct {
	ID        uuid.UUID
	Dealer    int64
	CreatedAt time.Time

	order  []int64         // порядок первых ставок
	stakes map[int64]int64 // участник → суммарная ставка (> 0)
}

func newPool(dealer int64, now time.Time) *Pool {
	return &Pool{
		ID:        uuid.New(),
		Dealer:    dealer,
		CreatedAt: now,
		stakes:    make(map[int64]int64),
	}
}

func (p *Pool) add(better, amount int64) {
	if _, ok := p.stakes[better]; !ok {
		p.order = append(p.order, better)
	}
	p.stakes[better] += amount
}

// Stake — ставка одного участника в сводке.
type Stake struct {
	Better int64
	Amount int64
	Delta  int64 // Amount минус максимальная ставка (≤ 0)
}

// Summary — снимок пула для показа.
type Summary struct {
	ID     uuid.UUID
	Dealer int64
	Total  int64
	Max    int64
	Stakes []Stake // в порядке первых ставок
}

func (p *Pool) summary() Summary {
	s := Summary{ID: p.ID, Dealer: p.Dealer}
	for _, id := range p.order {
		amount := p.stakes[id]
		s.Total += amount
		if amount > s.Max {
			s.Max = amount
		}
	}
	for _, id := range p.order {
		amount := p.stakes[id]
		s.Stakes = append(s.Stakes, Stake{Better: id, Amount: amount, Delta: amount - s.Max})
	}
	return s
}
