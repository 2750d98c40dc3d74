// Package ppl — handlers.go обрабатывает !ппл, !ппл купить n, !ппл продать n [force].
package ppl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/notify"
)

const usage = "❌ Формат: !ппл | !ппл купить <n> | !ппл продать <n> [force]"

// Handler обрабатывает команды PPL.
type Handler struct {
	service *Service
	sender  notify.Sender
}

// NewHandler создаёт обработчик PPL.
func NewHandler(service *Service, sender notify.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandlePPL разбирает подкоманду !ппл.
func (h *Handler) HandlePPL(ctx context.Context, msg notify.Message, args []string) {
	if len(args) == 0 {
		q, err := h.service.Check(ctx, msg.UserID)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, FormatQuote(q))
		return
	}

	n := int64(1)
	if len(args) > 1 {
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			h.reply(ctx, msg, usage)
			return
		}
		n = v
	}

	switch strings.ToLower(args[0]) {
	case "купить":
		t, err := h.service.Buy(ctx, msg.UserID, n)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("📈 Куплено PPL: %d за %s\nУ вас %d PPL, баланс %s",
			t.Quantity, common.FormatMoney(t.Amount), t.Holdings, common.FormatMoney(t.Balance)))
	case "продать":
		force := len(args) > 2 && strings.EqualFold(args[2], "force")
		t, err := h.service.Sell(ctx, msg.UserID, n, force)
		if err != nil {
			if errors.Is(err, common.ErrIndexNotPositive) {
				h.reply(ctx, msg, "❌ Индекс PPL не положительный. Чтобы всё равно продать: !ппл продать <n> force")
				return
			}
			h.replyError(ctx, msg, err)
			return
		}
		text := fmt.Sprintf("📉 Продано PPL: %d, выручка %s\nУ вас %d PPL, баланс %s",
			t.Quantity, common.FormatMoney(t.Amount), t.Holdings, common.FormatMoney(t.Balance))
		if t.Capped {
			text = "Продаём всё, что есть.\n" + text
		}
		h.reply(ctx, msg, text)
	default:
		h.reply(ctx, msg, usage)
	}
}

// FormatQuote форматирует индекс и позицию пользователя.
func FormatQuote(q Quote) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Индекс PPL сегодня: %d (вчера %d)\n", q.Index, q.Yesterday))
	if ratio, ok := q.Change(); ok {
		trend := "без изменений"
		switch ratio.Cmp(decimal.NewFromInt(1)) {
		case 1:
			trend = "рост ▲"
		case -1:
			trend = "падение ▼"
		}
		sb.WriteString(fmt.Sprintf("К вчерашнему: %s, %s\n", common.FormatPercent(ratio), trend))
	} else {
		sb.WriteString("Вчера индекс был нулевым\n")
	}
	sb.WriteString(fmt.Sprintf("У вас %d PPL на %s", q.Holdings, common.FormatMoney(q.Value)))
	return sb.String()
}

func (h *Handler) replyError(ctx context.Context, msg notify.Message, err error) {
	if common.IsUserError(err) {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}
	log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка операции с PPL")
	h.reply(ctx, msg, "❌ Ошибка операции с PPL")
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
