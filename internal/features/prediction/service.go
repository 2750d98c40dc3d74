// Package prediction — service.go: старт, продление, ставки и закрытие рынка.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// Service хранит рынки в памяти процесса.
type Service struct {
	economy  *economy.Service
	cfg      *config.Config
	validate *validator.Validate
	now      func() time.Time

	locks   *common.KeyedMutex
	mu      sync.Mutex
	markets map[int64]*Market
}

// NewService создаёт сервис прогнозов.
func NewService(economyService *economy.Service, cfg *config.Config) *Service {
	return &Service{
		economy:  economyService,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
		locks:    common.NewKeyedMutex(),
		markets:  make(map[int64]*Market),
	}
}

// Start открывает рынок дилера и списывает плату за открытие.
func (s *Service) Start(ctx context.Context, dealer int64, req StartRequest) (Market, error) {
	if err := s.validate.Struct(req); err != nil {
		return Market{}, fmt.Errorf("%w: %v", common.ErrInvalidMarket, err)
	}
	unlock := s.locks.Lock(dealer)
	defer unlock()

	s.mu.Lock()
	_, exists := s.markets[dealer]
	s.mu.Unlock()
	if exists {
		return Market{}, common.ErrSessionExists
	}
	if req.Duration <= 0 {
		return Market{}, common.ErrInvalidDuration
	}
	if s.cfg.PredictionFee > 0 {
		if err := s.economy.Withdraw(ctx, dealer, s.cfg.PredictionFee, economy.TxTypeFee, "Открытие прогноза"); err != nil {
			return Market{}, err
		}
	}

	market := newMarket(dealer, req, s.now())
	s.mu.Lock()
	s.markets[dealer] = market
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"market": market.ID,
		"dealer": dealer,
		"until":  market.ClosesAt,
	}).Info("Прогноз открыт")
	return market.clone(), nil
}

// Extend сдвигает закрытие приёма ставок на d. Работает и после истечения срока.
func (s *Service) Extend(dealer int64, d time.Duration) (Market, error) {
	if d <= 0 {
		return Market{}, common.ErrInvalidDuration
	}
	unlock := s.locks.Lock(dealer)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	market, ok := s.markets[dealer]
	if !ok {
		return Market{}, common.ErrNoSession
	}
	market.ClosesAt = market.ClosesAt.Add(d)
	return market.clone(), nil
}

// Stake принимает ставку amount на исход outcome (1 или 2).
func (s *Service) Stake(ctx context.Context, dealer, bettor int64, outcome int, amount int64) (Market, error) {
	if amount <= 0 {
		return Market{}, common.ErrInvalidAmount
	}
	unlock := s.locks.Lock(dealer)
	defer unlock()

	balance, err := s.economy.GetBalance(ctx, bettor)
	if err != nil {
		return Market{}, err
	}
	if balance < amount {
		return Market{}, common.ErrInsufficientBalance
	}

	s.mu.Lock()
	market, ok := s.markets[dealer]
	var closesAt time.Time
	if ok {
		closesAt = market.ClosesAt
	}
	s.mu.Unlock()
	if !ok {
		return Market{}, common.ErrNoSession
	}
	if s.now().After(closesAt) {
		return Market{}, common.ErrMarketClosed
	}
	if outcome != 1 && outcome != 2 {
		return Market{}, common.ErrInvalidOutcome
	}

	if err := s.economy.Withdraw(ctx, bettor, amount, economy.TxTypePrediction, "Ставка на прогноз"); err != nil {
		return Market{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	market.Pools[outcome-1][bettor] += amount
	return market.clone(), nil
}

// End закрывает рынок с исходом outcome и выплачивает победителям
// round(stake · total / winnerPool). Если на исход никто не ставил, банк получает дилер.
func (s *Service) End(ctx context.Context, dealer int64, outcome int) (Resolution, error) {
	unlock := s.locks.Lock(dealer)
	defer unlock()

	s.mu.Lock()
	market, ok := s.markets[dealer]
	s.mu.Unlock()
	if !ok {
		return Resolution{}, common.ErrNoSession
	}
	if outcome != 1 && outcome != 2 {
		return Resolution{}, common.ErrInvalidOutcome
	}

	s.mu.Lock()
	delete(s.markets, dealer)
	snapshot := market.clone()
	s.mu.Unlock()

	res := Resolution{
		Market:  snapshot,
		Outcome: outcome,
		Total:   snapshot.Total(),
		Payouts: make(map[int64]int64),
	}
	winnerPool := snapshot.PoolTotal(outcome - 1)

	if winnerPool == 0 {
		res.Refunded = true
		if res.Total > 0 {
			if err := s.economy.AddBalance(ctx, dealer, res.Total, economy.TxTypePrediction, "Банк прогноза без победителей"); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	res.Payouts = Payouts(snapshot.Pools[outcome-1], res.Total, winnerPool)
	var errs []error
	for id, amount := range res.Payouts {
		if err := s.economy.AddBalance(ctx, id, amount, economy.TxTypePrediction, "Выигрыш прогноза"); err != nil {
			log.WithError(err).WithField("user_id", id).Error("Ошибка выплаты прогноза")
			errs = append(errs, fmt.Errorf("выплата user_id=%d: %w", id, err))
		}
	}

	log.WithFields(log.Fields{
		"market":  snapshot.ID,
		"outcome": outcome,
		"total":   res.Total,
	}).Info("Прогноз закрыт")
	return res, errors.Join(errs...)
}

// Info возвращает снимок рынка дилера.
func (s *Service) Info(dealer int64) (Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	market, ok := s.markets[dealer]
	if !ok {
		return Market{}, common.ErrNoSession
	}
	return market.clone(), nil
}

// Payouts делит total между победителями пропорционально ставкам.
func Payouts(winners map[int64]int64, total, winnerPool int64) map[int64]int64 {
	out := make(map[int64]int64, len(winners))
	if winnerPool <= 0 {
		return out
	}
	pot, pool := decimal.NewFromInt(total), decimal.NewFromInt(winnerPool)
	for id, stake := range winners {
		out[id] = decimal.NewFromInt(stake).Mul(pot).Div(pool).Round(0).IntPart()
	}
	return out
}
