// Package betting — service.go: ставки, сводка и раздача банка.
package betting

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// Service хранит пулы в памяти процесса. После перезапуска пулы пропадают.
type Service struct {
	economy *economy.Service
	now     func() time.Time

	locks *common.KeyedMutex // на дилера: проверка → списание → запись
	mu    sync.Mutex
	pools map[int64]*Pool
}

// NewService создаёт сервис ставок.
func NewService(economyService *economy.Service) *Service {
	return &Service{
		economy: economyService,
		now:     time.Now,
		locks:   common.NewKeyedMutex(),
		pools:   make(map[int64]*Pool),
	}
}

// Raise списывает amount у участника и добавляет к его ставке в пуле дилера.
// Пул создаётся при первой ставке.
func (s *Service) Raise(ctx context.Context, dealer, better, amount int64) (Summary, error) {
	if amount <= 0 {
		return Summary{}, common.ErrInvalidAmount
	}
	unlock := s.locks.Lock(dealer)
	defer unlock()

	if err := s.economy.Withdraw(ctx, better, amount, economy.TxTypeBet, "Ставка"); err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[dealer]
	if !ok {
		pool = newPool(dealer, s.now())
		s.pools[dealer] = pool
	}
	pool.add(better, amount)

	log.WithFields(log.Fields{
		"pool":   pool.ID,
		"dealer": dealer,
		"better": better,
		"amount": amount,
	}).Info("Ставка принята")
	return pool.summary(), nil
}

// Info возвращает сводку пула дилера.
func (s *Service) Info(dealer int64) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[dealer]
	if !ok {
		return Summary{}, common.ErrNoSession
	}
	return pool.summary(), nil
}

// Unroll отдаёт весь банк пула dealer получателю и закрывает пул.
// Раздать можно только свой пул.
func (s *Service) Unroll(ctx context.Context, dealer, recipient int64) (int64, error) {
	unlock := s.locks.Lock(dealer)
	defer unlock()

	s.mu.Lock()
	pool, ok := s.pools[dealer]
	if ok {
		delete(s.pools, dealer)
	}
	s.mu.Unlock()
	if !ok {
		return 0, common.ErrNoSession
	}

	total := pool.summary().Total
	if err := s.economy.AddBalance(ctx, recipient, total, economy.TxTypeBetPayout, "Банк ставок"); err != nil {
		s.mu.Lock()
		s.pools[dealer] = pool
		s.mu.Unlock()
		return 0, err
	}

	log.WithFields(log.Fields{
		"pool":      pool.ID,
		"dealer":    dealer,
		"recipient": recipient,
		"total":     total,
	}).Info("Банк ставок раздан")
	return total, nil
}
