// Package pig — service.go ведёт игру через Prompter.
package pig

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// TopLimit — размер таблицы рекордов.
const TopLimit = 10

// Service проводит игры и хранит рекорды.
type Service struct {
	store    Store
	economy  *economy.Service
	prompter notify.Prompter
	cfg      *config.Config
	roll     func() int
}

// NewService создаёт сервис игры.
func NewService(store Store, economyService *economy.Service, prompter notify.Prompter, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		economy:  economyService,
		prompter: prompter,
		cfg:      cfg,
		roll:     func() int { return rand.IntN(6) + 1 },
	}
}

// Play списывает взнос и спрашивает игрока, бросать ли кубик, пока он не
// остановится, не выбросит единицу или не промолчит дольше таймаута.
func (s *Service) Play(ctx context.Context, channelID string, userID int64) (*Game, error) {
	if s.cfg.PigStartCost > 0 {
		if err := s.economy.Withdraw(ctx, userID, s.cfg.PigStartCost, economy.TxTypePig, "Взнос за игру «Свинья»"); err != nil {
			return nil, err
		}
	}
	if err := s.store.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	game := &Game{}
	text := "🐷 Счёт: 0. Бросаем кубик?"
	for {
		choice, err := s.prompter.Ask(ctx, channelID, userID, text, Options)
		if errors.Is(err, common.ErrPromptTimeout) {
			game.Outcome = OutcomeTimeout
			return game, nil
		}
		if err != nil {
			return game, err
		}
		if choice != OptionRoll {
			break
		}

		die := s.roll()
		game.Rolls = append(game.Rolls, die)
		if die == 1 {
			game.Score = 0
			game.Outcome = OutcomeBusted
			return game, nil
		}
		game.Score += int64(die)
		text = fmt.Sprintf("🎲 Выпало %d, счёт: %d. Бросаем ещё?", die, game.Score)
	}

	game.Outcome = OutcomeStopped
	improved, err := s.store.UpdateBest(ctx, userID, game.Score)
	if err != nil {
		return game, err
	}
	game.NewBest = improved

	log.WithFields(log.Fields{
		"user_id": userID,
		"score":   game.Score,
		"rolls":   len(game.Rolls),
	}).Info("Игра «Свинья» окончена")
	return game, nil
}

// Best возвращает рекорд игрока.
func (s *Service) Best(ctx context.Context, userID int64) (Record, bool, error) {
	return s.store.Get(ctx, userID)
}

// Top возвращает таблицу рекордов.
func (s *Service) Top(ctx context.Context) ([]Record, error) {
	return s.store.Top(ctx, TopLimit)
}
