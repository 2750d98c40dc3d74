// Package scratch — handlers.go обрабатывает !моменталка <сумма> и !моменталка стат.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды моментальной лотереи.
type Handler struct {
	service *Service
	sender  notify.Sender
}

// NewHandler создаёт обработчик моментальной лотереи.
func NewHandler(service *Service, sender notify.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleScratch обрабатывает !моменталка.
func (h *Handler) HandleScratch(ctx context.Context, msg notify.Message, args []string) {
	if len(args) == 0 {
		h.reply(ctx, msg, "❌ Формат: !моменталка <сумма> | !моменталка стат")
		return
	}
	if strings.EqualFold(args[0], "стат") {
		h.handleStats(ctx, msg)
		return
	}

	price, err := common.ParseMoney(args[0])
	if err != nil || price <= 0 {
		h.reply(ctx, msg, "❌ Сумма должна быть положительным числом")
		return
	}

	result, err := h.service.Play(ctx, msg.ChannelID, msg.UserID, price)
	switch {
	case errors.Is(err, common.ErrPromptTimeout):
		h.reply(ctx, msg, fmt.Sprintf("⌛ Время вышло, билет сгорел. Карточка: %s", FormatCard(result.Card)))
		return
	case err != nil && common.IsUserError(err):
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	case err != nil:
		log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка моментальной лотереи")
		h.reply(ctx, msg, "❌ Ошибка моментальной лотереи")
		return
	}

	h.reply(ctx, msg, fmt.Sprintf("🎫 %s\nВы выбрали %s: %s\n💰 Выигрыш: %s",
		FormatCard(result.Card), Options[result.Choice], Prizes[result.Card[result.Choice]],
		common.FormatMoney(result.Win)))
}

func (h *Handler) handleStats(ctx context.Context, msg notify.Message) {
	stats, err := h.service.GetStats(ctx, msg.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка получения статистики игр")
		h.reply(ctx, msg, "❌ Ошибка получения статистики")
		return
	}
	if stats == nil {
		h.reply(ctx, msg, "📊 Вы ещё не играли в моментальную лотерею")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf(
		"📊 Моментальная лотерея\n"+
			"Игр: %d\n"+
			"Поставлено: %s\n"+
			"Выиграно: %s\n"+
			"Итог: %s\n"+
			"💎 Лучший выигрыш: %s\n"+
			"📈 Возврат: %.2f%%",
		stats.TotalPlays,
		common.FormatMoney(stats.TotalWagered),
		common.FormatMoney(stats.TotalWon),
		common.FormatSignedMoney(stats.TotalWon-stats.TotalWagered),
		common.FormatMoney(stats.BiggestWin),
		stats.ReturnRate,
	))
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
