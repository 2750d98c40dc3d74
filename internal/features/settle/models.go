// Package settle ведёт сессии расчёта: участники сообщают значения,
// а при подтверждении деньги перераспределяются вокруг среднего.
package settle

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/discord-bot/internal/common"
)

var hundred = decimal.NewFromInt(100)

// Session — сессия расчёта одного дилера.
type Session struct {
	ID         uuid.UUID
	Dealer     int64
	Multiplier decimal.Decimal
	CreatedAt  time.Time

	values map[int64]decimal.Decimal
}

// Entry — участник с его значением и выплатой в центило.
type Entry struct {
	Participant int64
	Value       decimal.Decimal
	Payout      int64
}

// Summary — снимок сессии, участники по убыванию значения.
type Summary struct {
	ID         uuid.UUID
	Dealer     int64
	Multiplier decimal.Decimal
	Mean       decimal.Decimal
	Entries    []Entry
}

// Payouts считает выплаты: round(100 · multiplier · (value − mean)) центило.
func Payouts(multiplier decimal.Decimal, values map[int64]decimal.Decimal) (decimal.Decimal, map[int64]int64) {
	payouts := make(map[int64]int64, len(values))
	if len(values) == 0 {
		return decimal.Zero, payouts
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(values))))
	for id, v := range values {
		payouts[id] = common.ClampInt64(multiplier.Mul(v.Sub(mean)).Mul(hundred).Round(0))
	}
	return mean, payouts
}

func (s *Session) summary() Summary {
	mean, payouts := Payouts(s.Multiplier, s.values)
	out := Summary{ID: s.ID, Dealer: s.Dealer, Multiplier: s.Multiplier, Mean: mean}
	for id, v := range s.values {
		out.Entries = append(out.Entries, Entry{Participant: id, Value: v, Payout: payouts[id]})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		if c := out.Entries[i].Value.Cmp(out.Entries[j].Value); c != 0 {
			return c > 0
		}
		return out.Entries[i].Participant < out.Entries[j].Participant
	})
	return out
}
