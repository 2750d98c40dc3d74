// Package ppl — рыночный актив PPL. Индекс PPL равен числу людей,
// проявивших активность за прошлый день; цена единицы — индекс × 1 Ł.
package ppl

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// Quote — состояние индекса и позиция пользователя.
type Quote struct {
	Index     int64
	Yesterday int64
	Holdings  int64
	Price     int64 // Цена единицы в центило
	Value     int64 // Holdings × Price
}

// Change возвращает отношение индекса к вчерашнему; ok == false, если вчера был 0.
func (q Quote) Change() (decimal.Decimal, bool) {
	if q.Yesterday == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(q.Index).Div(decimal.NewFromInt(q.Yesterday)), true
}

// Trade — итог покупки или продажи.
type Trade struct {
	Quantity int64 // Фактическое количество (продажа ограничена остатком)
	Amount   int64 // Стоимость покупки или выручка продажи
	Holdings int64
	Balance  int64
	Capped   bool // Продано меньше запрошенного
}

// Service торгует PPL за лофаны.
type Service struct {
	economy *economy.Service
	locks   *common.KeyedMutex
}

// NewService создаёт сервис PPL.
func NewService(economyService *economy.Service) *Service {
	return &Service{economy: economyService, locks: common.NewKeyedMutex()}
}

// Check возвращает индекс, вчерашний индекс и позицию пользователя.
func (s *Service) Check(ctx context.Context, userID int64) (Quote, error) {
	var q Quote
	var err error
	if q.Index, err = s.economy.GetInt(ctx, economy.SettingPPLIndex); err != nil {
		return q, err
	}
	if q.Yesterday, err = s.economy.GetInt(ctx, economy.SettingPPLYesterday); err != nil {
		return q, err
	}
	if q.Holdings, err = s.holdings(ctx, userID); err != nil {
		return q, err
	}
	q.Price = q.Index * common.CentilosPerLofan
	q.Value = q.Holdings * q.Price
	return q, nil
}

// Buy покупает n единиц по текущей цене. При индексе ≤ 0 покупка запрещена.
func (s *Service) Buy(ctx context.Context, userID, n int64) (Trade, error) {
	if n <= 0 {
		return Trade{}, common.ErrInvalidAmount
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	index, err := s.economy.GetInt(ctx, economy.SettingPPLIndex)
	if err != nil {
		return Trade{}, err
	}
	if index <= 0 {
		return Trade{}, common.ErrIndexNotPositive
	}
	price := index * common.CentilosPerLofan
	if n > math.MaxInt64/price {
		return Trade{}, common.ErrAmountTooLarge
	}
	cost := n * price
	if err := s.economy.Withdraw(ctx, userID, cost, economy.TxTypePPL, "Покупка PPL"); err != nil {
		return Trade{}, err
	}
	if err := s.economy.AddInventory(ctx, userID, economy.PPLItem, n, 0); err != nil {
		return Trade{}, err
	}

	log.WithFields(log.Fields{"user_id": userID, "quantity": n, "cost": cost}).Info("Куплены PPL")
	return s.trade(ctx, userID, n, cost, false)
}

// Sell продаёт до n единиц. При индексе ≤ 0 нужна явная force.
func (s *Service) Sell(ctx context.Context, userID, n int64, force bool) (Trade, error) {
	if n <= 0 {
		return Trade{}, common.ErrInvalidAmount
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	index, err := s.economy.GetInt(ctx, economy.SettingPPLIndex)
	if err != nil {
		return Trade{}, err
	}
	if index <= 0 && !force {
		return Trade{}, common.ErrIndexNotPositive
	}
	having, err := s.holdings(ctx, userID)
	if err != nil {
		return Trade{}, err
	}
	capped := false
	if n > having {
		n, capped = having, true
	}
	proceeds := n * index * common.CentilosPerLofan
	if proceeds < 0 {
		proceeds = 0
	}

	if err := s.economy.SetInventory(ctx, userID, economy.PPLItem, having-n, 0); err != nil {
		return Trade{}, err
	}
	if proceeds > 0 {
		if err := s.economy.AddBalance(ctx, userID, proceeds, economy.TxTypePPL, "Продажа PPL"); err != nil {
			return Trade{}, err
		}
	}

	log.WithFields(log.Fields{"user_id": userID, "quantity": n, "proceeds": proceeds}).Info("Проданы PPL")
	return s.trade(ctx, userID, n, proceeds, capped)
}

func (s *Service) trade(ctx context.Context, userID, n, amount int64, capped bool) (Trade, error) {
	t := Trade{Quantity: n, Amount: amount, Capped: capped}
	var err error
	if t.Holdings, err = s.holdings(ctx, userID); err != nil {
		return t, err
	}
	t.Balance, err = s.economy.GetBalance(ctx, userID)
	return t, err
}

func (s *Service) holdings(ctx context.Context, userID int64) (int64, error) {
	items, err := s.economy.GetInventory(ctx, userID)
	if err != nil {
		return 0, err
	}
	return items[economy.PPLItem].Quantity, nil
}
