// Package attendance — handlers.go обрабатывает !отметка и !серия.
package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды посещаемости.
type Handler struct {
	service       *Service
	memberService *members.Service
	sender        notify.Sender
}

// NewHandler создаёт обработчик посещаемости.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender) *Handler {
	return &Handler{service: service, memberService: memberService, sender: sender}
}

// HandleCheckIn обрабатывает !отметка.
//
// Формат ответа:
//
//	✅ Отметка засчитана! Серия: 3 дня
//	💰 Награда: 30.00 Ł
func (h *Handler) HandleCheckIn(ctx context.Context, msg notify.Message, _ []string) {
	res, err := h.service.CheckIn(ctx, msg.UserID, time.Now())
	if err != nil {
		if common.IsUserError(err) {
			h.reply(ctx, msg, "❌ "+err.Error())
			return
		}
		log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка отметки")
		h.reply(ctx, msg, "❌ Ошибка отметки")
		return
	}

	text := fmt.Sprintf("✅ Отметка засчитана! Серия: %d %s\n💰 Награда: %s",
		res.Streak, common.PluralizeDays(int64(res.Streak)), common.FormatMoney(res.Net))
	if res.Withheld > 0 {
		text += fmt.Sprintf(" (в счёт налога удержано %s)", common.FormatMoney(res.Withheld))
	}
	h.reply(ctx, msg, text)
}

// HandleStreak обрабатывает !серия: своя серия и топ-10.
func (h *Handler) HandleStreak(ctx context.Context, msg notify.Message, _ []string) {
	var sb strings.Builder

	own, ok, err := h.service.Get(ctx, msg.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка получения серии")
		h.reply(ctx, msg, "❌ Ошибка получения серии")
		return
	}
	if ok {
		sb.WriteString(fmt.Sprintf("🔥 Ваша серия: %d %s (рекорд %d)\n\n",
			own.Streak, common.PluralizeDays(int64(own.Streak)), own.MaxStreak))
	} else {
		sb.WriteString("🔥 Вы ещё не отмечались. Команда: !отметка\n\n")
	}

	top, err := h.service.Top(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения рейтинга серий")
		h.reply(ctx, msg, "❌ Ошибка получения рейтинга серий")
		return
	}
	sb.WriteString("🏆 Лучшие серии:\n")
	for i, a := range top {
		sb.WriteString(fmt.Sprintf("%d. %s — %d\n", i+1, h.memberService.DisplayName(ctx, a.UserID), a.Streak))
	}
	h.reply(ctx, msg, sb.String())
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
