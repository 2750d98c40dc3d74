// Package scratch — service.go проводит игру от списания цены до выплаты.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Service управляет моментальной лотереей.
type Service struct {
	store    Store
	economy  *economy.Service
	prompter notify.Prompter
	cfg      *config.Config
	shuffle  func(card *Card)
}

// NewService создаёт сервис моментальной лотереи.
func NewService(store Store, economyService *economy.Service, prompter notify.Prompter, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		economy:  economyService,
		prompter: prompter,
		cfg:      cfg,
		shuffle: func(card *Card) {
			rand.Shuffle(len(card), func(i, j int) { card[i], card[j] = card[j], card[i] })
		},
	}
}

// Play списывает price, показывает карточку и ждёт выбор поля.
// Цена не больше доли ScratchMaxShare от баланса. При таймауте цена не возвращается.
func (s *Service) Play(ctx context.Context, channelID string, userID, price int64) (*Result, error) {
	if price <= 0 {
		return nil, common.ErrInvalidAmount
	}
	balance, err := s.economy.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := decimal.NewFromInt(balance).Mul(decimal.NewFromFloat(s.cfg.ScratchMaxShare))
	if decimal.NewFromInt(price).GreaterThan(limit) {
		return nil, fmt.Errorf("%w: не больше %s", common.ErrPriceTooHigh, common.FormatMoney(limit.IntPart()))
	}
	if err := s.economy.Withdraw(ctx, userID, price, economy.TxTypeScratch, "Моментальная лотерея"); err != nil {
		return nil, err
	}

	result := &Result{Price: price, Choice: -1}
	for i := range result.Card {
		result.Card[i] = i
	}
	s.shuffle(&result.Card)

	choice, err := s.prompter.Ask(ctx, channelID, userID, promptText(price), Options)
	if err != nil {
		s.record(ctx, userID, result)
		if errors.Is(err, common.ErrPromptTimeout) {
			log.WithField("user_id", userID).Info("Моментальная лотерея: время вышло")
		}
		return result, err
	}
	if choice < 0 || choice >= CardSize {
		return result, fmt.Errorf("неизвестный вариант %d", choice)
	}

	result.Choice = choice
	result.Win = decimal.NewFromInt(price).Mul(Multiplier(result.Card[choice])).Round(0).IntPart()
	if result.Win > 0 {
		if err := s.economy.AddBalance(ctx, userID, result.Win, economy.TxTypeScratch, "Выигрыш моментальной лотереи"); err != nil {
			return result, err
		}
	}
	s.record(ctx, userID, result)

	log.WithFields(log.Fields{
		"user_id": userID,
		"price":   price,
		"win":     result.Win,
	}).Info("Моментальная лотерея сыграна")
	return result, nil
}

// GetStats возвращает статистику игрока или nil.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	return s.store.GetStats(ctx, userID)
}

func (s *Service) record(ctx context.Context, userID int64, r *Result) {
	if err := s.store.UpdateStats(ctx, userID, r.Price, r.Win); err != nil {
		log.WithError(err).Error("Ошибка обновления статистики игр")
	}
	game := &Game{
		UserID:       userID,
		GameType:     GameTypeScratch,
		BetAmount:    r.Price,
		ResultAmount: r.Win,
		GameData:     gameData(r),
	}
	if err := s.store.SaveGame(ctx, game); err != nil {
		log.WithError(err).Error("Ошибка сохранения игры")
	}
}

func promptText(price int64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎫 Моментальная лотерея за %s\n", common.FormatMoney(price)))
	sb.WriteString("Под полями спрятаны призы:\n")
	for k, prize := range Prizes {
		win := decimal.NewFromInt(price).Mul(Multiplier(k)).Round(0).IntPart()
		sb.WriteString(fmt.Sprintf("%s ×%s (%s)\n", prize, Multiplier(k).StringFixed(2), common.FormatMoney(win)))
	}
	sb.WriteString("Выберите поле реакцией: " + strings.Join(Options, " "))
	return sb.String()
}

// FormatCard раскрывает карточку.
func FormatCard(card Card) string {
	parts := make([]string, len(card))
	for i, k := range card {
		parts[i] = Prizes[k]
	}
	return strings.Join(parts, " ")
}
