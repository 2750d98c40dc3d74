// Package settle — service.go: жизненный цикл сессии расчёта.
package settle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// Result — итог подтверждения сессии.
type Result struct {
	Summary Summary
	Settled bool            // false, если участников было не больше одного
	Debts   map[int64]int64 // участник → недостача, перенесённая в налог
}

// Границы ввода: при них |выплата| ≤ 1000 · 2·10^12 · 100, что помещается в int64.
var (
	MaxMultiplier = decimal.NewFromInt(1000)
	MaxValue      = decimal.NewFromInt(1_000_000_000_000)
)

// Service хранит сессии расчёта в памяти процесса.
type Service struct {
	economy *economy.Service
	now     func() time.Time

	locks    *common.KeyedMutex
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewService создаёт сервис расчётов.
func NewService(economyService *economy.Service) *Service {
	return &Service{
		economy:  economyService,
		now:      time.Now,
		locks:    common.NewKeyedMutex(),
		sessions: make(map[int64]*Session),
	}
}

// Start открывает сессию дилера с заданным множителем.
func (s *Service) Start(dealer int64, multiplier decimal.Decimal) (Summary, error) {
	if multiplier.Abs().GreaterThan(MaxMultiplier) {
		return Summary{}, fmt.Errorf("%w: множитель не больше %s", common.ErrAmountTooLarge, MaxMultiplier)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[dealer]; ok {
		return Summary{}, common.ErrSessionExists
	}
	session := &Session{
		ID:         uuid.New(),
		Dealer:     dealer,
		Multiplier: multiplier,
		CreatedAt:  s.now(),
		values:     make(map[int64]decimal.Decimal),
	}
	s.sessions[dealer] = session
	return session.summary(), nil
}

// Join записывает значение участника; повторный вызов перезаписывает его.
func (s *Service) Join(dealer, participant int64, value decimal.Decimal) (Summary, error) {
	if value.Abs().GreaterThan(MaxValue) {
		return Summary{}, fmt.Errorf("%w: значение не больше %s", common.ErrAmountTooLarge, MaxValue)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[dealer]
	if !ok {
		return Summary{}, common.ErrNoSession
	}
	session.values[participant] = value
	return session.summary(), nil
}

// Leave убирает участника из сессии.
func (s *Service) Leave(dealer, participant int64) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[dealer]
	if !ok {
		return Summary{}, common.ErrNoSession
	}
	if _, ok := session.values[participant]; !ok {
		return Summary{}, common.ErrNotParticipant
	}
	delete(session.values, participant)
	return session.summary(), nil
}

// Info возвращает снимок сессии дилера.
func (s *Service) Info(dealer int64) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[dealer]
	if !ok {
		return Summary{}, common.ErrNoSession
	}
	return session.summary(), nil
}

// Cancel закрывает сессию без движения денег.
func (s *Service) Cancel(dealer int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[dealer]; !ok {
		return common.ErrNoSession
	}
	delete(s.sessions, dealer)
	return nil
}

// List возвращает все открытые сессии.
func (s *Service) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dealer < out[j].Dealer })
	return out
}

// Confirm применяет выплаты и закрывает сессию.
// При одном участнике или без участников сессия закрывается без денег.
func (s *Service) Confirm(ctx context.Context, dealer int64) (Result, error) {
	unlock := s.locks.Lock(dealer)
	defer unlock()

	s.mu.Lock()
	session, ok := s.sessions[dealer]
	if ok {
		delete(s.sessions, dealer)
	}
	s.mu.Unlock()
	if !ok {
		return Result{}, common.ErrNoSession
	}

	summary := session.summary()
	result := Result{Summary: summary, Debts: make(map[int64]int64)}
	if len(summary.Entries) <= 1 {
		return result, nil
	}

	var errs []error
	description := fmt.Sprintf("Расчёт %s", session.ID)
	for _, e := range summary.Entries {
		shortfall, err := s.economy.Settle(ctx, e.Participant, e.Payout, description)
		if err != nil {
			errs = append(errs, fmt.Errorf("расчёт user_id=%d: %w", e.Participant, err))
			continue
		}
		if shortfall > 0 {
			result.Debts[e.Participant] = shortfall
		}
	}
	result.Settled = true

	log.WithFields(log.Fields{
		"session":      session.ID,
		"dealer":       dealer,
		"participants": len(summary.Entries),
		"mean":         summary.Mean.String(),
	}).Info("Расчёт подтверждён")
	return result, errors.Join(errs...)
}
