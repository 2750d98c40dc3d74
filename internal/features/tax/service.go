// Package tax — service.go собирает налог со всех счетов и рассылает уведомления.
package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Statement — налоговое уведомление одного пользователя.
type Statement struct {
	UserID int64
	Assets int64
	Tax    int64
}

// Rate возвращает эффективную ставку tax/assets.
func (s Statement) Rate() decimal.Decimal {
	if s.Assets <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.Tax).Div(decimal.NewFromInt(s.Assets))
}

// Service начисляет налог.
type Service struct {
	economy *economy.Service
	sender  notify.Sender
}

// NewService создаёт сервис налогов.
func NewService(economyService *economy.Service, sender notify.Sender) *Service {
	return &Service{economy: economyService, sender: sender}
}

// Estimate считает налог, который был бы начислен пользователю сейчас.
func (s *Service) Estimate(ctx context.Context, userID int64) (Statement, error) {
	price, err := s.economy.PPLPrice(ctx)
	if err != nil {
		return Statement{}, err
	}
	return s.statement(ctx, userID, price)
}

func (s *Service) statement(ctx context.Context, userID, pplPrice int64) (Statement, error) {
	assets, err := s.economy.TotalAssets(ctx, userID, pplPrice)
	if err != nil {
		return Statement{}, fmt.Errorf("активы user_id=%d: %w", userID, err)
	}
	return Statement{UserID: userID, Assets: assets, Tax: Tax(assets)}, nil
}

// CollectTaxes начисляет налог каждому счёту и уведомляет владельца в ЛС.
// Ошибка по одному счёту не останавливает сбор с остальных.
func (s *Service) CollectTaxes(ctx context.Context, now time.Time) ([]Statement, error) {
	price, err := s.economy.PPLPrice(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.economy.AccountIDs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		statements []Statement
		total      int64
	)
	for _, id := range ids {
		st, err := s.statement(ctx, id, price)
		if err != nil {
			log.WithError(err).WithField("user_id", id).Error("Ошибка расчёта налога")
			continue
		}
		if st.Tax > 0 {
			if err := s.economy.AddTax(ctx, id, st.Tax); err != nil {
				log.WithError(err).WithField("user_id", id).Error("Ошибка начисления налога")
				continue
			}
		}
		statements = append(statements, st)
		total += st.Tax

		if err := s.sender.DM(ctx, id, FormatStatement(st, now)); err != nil {
			log.WithError(err).WithField("user_id", id).Debug("Не удалось отправить налоговое уведомление")
		}
	}

	log.WithFields(log.Fields{
		"accounts": len(statements),
		"total":    total,
	}).Info("Налог собран")
	return statements, nil
}

// FormatStatement форматирует налоговое уведомление.
func FormatStatement(st Statement, now time.Time) string {
	return fmt.Sprintf("🧾 Налог за %s\nАктивы: %s\nЭффективная ставка: %s\nНачислено: %s",
		now.Format("01.2006"),
		common.FormatMoney(st.Assets),
		common.FormatPercent(st.Rate()),
		common.FormatMoney(st.Tax))
}
