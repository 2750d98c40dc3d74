// Package attendance — service.go содержит логику отметок и наград.
package attendance

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// TopLimit — размер рейтинга серий.
const TopLimit = 10

// Service управляет отметками.
type Service struct {
	store   Store
	economy *economy.Service
	cfg     *config.Config
	locks   *common.KeyedMutex
}

// NewService создаёт сервис посещаемости.
func NewService(store Store, economyService *economy.Service, cfg *config.Config) *Service {
	return &Service{store: store, economy: economyService, cfg: cfg, locks: common.NewKeyedMutex()}
}

// CheckIn отмечает пользователя за день now (в часовом поясе приложения).
// Повторная отметка в тот же день возвращает common.ErrAlreadyChecked.
// Награда начисляется как доход, с удержанием налогового долга.
func (s *Service) CheckIn(ctx context.Context, userID int64, now time.Time) (*CheckIn, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	today := common.DateOf(now.In(s.cfg.Location()))
	a, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ok {
		last := common.DateOf(a.LastAttend.In(today.Location()))
		switch {
		case !last.Before(today):
			return nil, common.ErrAlreadyChecked
		case last.AddDate(0, 0, 1).Equal(today):
			a.Streak++
		default:
			a.Streak = 1
		}
	} else {
		a = Attendance{UserID: userID, Streak: 1}
	}
	if a.Streak > a.MaxStreak {
		a.MaxStreak = a.Streak
	}
	a.LastAttend = today

	if err := s.store.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("ошибка отметки: %w", err)
	}

	res := &CheckIn{Attendance: a, Reward: Reward(a.Streak, s.cfg.AttendanceBaseReward, s.cfg.AttendanceMaxDays)}
	description := fmt.Sprintf("Отметка, день %d", a.Streak)
	res.Net, res.Withheld, err = s.economy.ApplyIncomeWithTax(ctx, userID, res.Reward, economy.TxTypeAttendance, description)
	if err != nil {
		return res, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"day":     a.Streak,
		"reward":  res.Reward,
	}).Debug("Отметка засчитана")
	return res, nil
}

// Get возвращает запись пользователя.
func (s *Service) Get(ctx context.Context, userID int64) (Attendance, bool, error) {
	return s.store.Get(ctx, userID)
}

// Top возвращает лучшие серии.
func (s *Service) Top(ctx context.Context) ([]Attendance, error) {
	return s.store.Top(ctx, TopLimit)
}
