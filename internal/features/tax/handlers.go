// Package tax — handlers.go обрабатывает команду !налог.
package tax

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды налогов.
type Handler struct {
	service *Service
	economy *economy.Service
	sender  notify.Sender
}

// NewHandler создаёт обработчик налоговых команд.
func NewHandler(service *Service, economyService *economy.Service, sender notify.Sender) *Handler {
	return &Handler{service: service, economy: economyService, sender: sender}
}

// HandleTax показывает долг и оценку следующего начисления.
func (h *Handler) HandleTax(ctx context.Context, msg notify.Message, _ []string) {
	owed, err := h.economy.GetTax(ctx, msg.UserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения налога")
		h.reply(ctx, msg, "❌ Ошибка получения налога")
		return
	}
	st, err := h.service.Estimate(ctx, msg.UserID)
	if err != nil {
		log.WithError(err).Error("Ошибка оценки налога")
		h.reply(ctx, msg, "❌ Ошибка оценки налога")
		return
	}

	text := fmt.Sprintf("🧾 Налоговый долг: %s\nАктивы: %s\nСледующее начисление (1-го числа): ~%s (%s)",
		common.FormatMoney(owed),
		common.FormatMoney(st.Assets),
		common.FormatMoney(st.Tax),
		common.FormatPercent(st.Rate()))
	h.reply(ctx, msg, text)
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
