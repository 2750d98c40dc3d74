// Package betting — handlers.go обрабатывает команды:
// !ставка @дилер сумма, !ставки @дилер, !раздать @получатель.
package betting

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды ставок.
type Handler struct {
	service       *Service
	memberService *members.Service
	sender        notify.Sender
}

// NewHandler создаёт обработчик ставок.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender) *Handler {
	return &Handler{service: service, memberService: memberService, sender: sender}
}

// HandleRaise обрабатывает !ставка @дилер сумма.
func (h *Handler) HandleRaise(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 2 {
		h.reply(ctx, msg, "❌ Формат: !ставка @дилер сумма")
		return
	}
	dealer, err := h.memberService.ResolveUser(ctx, args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Дилер не найден")
		return
	}
	amount, err := common.ParseMoney(args[1])
	if err != nil || amount <= 0 {
		h.reply(ctx, msg, "❌ Сумма должна быть положительным числом")
		return
	}

	summary, err := h.service.Raise(ctx, dealer, msg.UserID, amount)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка ставки")
		return
	}

	var mine int64
	for _, st := range summary.Stakes {
		if st.Better == msg.UserID {
			mine = st.Amount
		}
	}
	h.reply(ctx, msg, fmt.Sprintf("🎲 %s ставит %s на дилера %s\nТвоя ставка: %s, банк: %s\n\n%s",
		notify.Mention(msg.UserID), common.FormatMoney(amount), notify.Mention(dealer),
		common.FormatMoney(mine), common.FormatMoney(summary.Total),
		h.formatSummary(ctx, summary)))
}

// HandleInfo обрабатывает !ставки [@дилер] (по умолчанию свой пул).
func (h *Handler) HandleInfo(ctx context.Context, msg notify.Message, args []string) {
	dealer := msg.UserID
	if len(args) > 0 {
		id, err := h.memberService.ResolveUser(ctx, args[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Дилер не найден")
			return
		}
		dealer = id
	}
	summary, err := h.service.Info(dealer)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения ставок")
		return
	}
	h.reply(ctx, msg, h.formatSummary(ctx, summary))
}

// HandleUnroll обрабатывает !раздать @получатель.
func (h *Handler) HandleUnroll(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 1 {
		h.reply(ctx, msg, "❌ Формат: !раздать @получатель")
		return
	}
	recipient, err := h.memberService.ResolveUser(ctx, args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Получатель не найден")
		return
	}
	total, err := h.service.Unroll(ctx, msg.UserID, recipient)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка раздачи банка")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("💸 Банк дилера %s (%s) передан %s",
		notify.Mention(msg.UserID), common.FormatMoney(total), notify.Mention(recipient)))
}

func (h *Handler) formatSummary(ctx context.Context, s Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Ставки на дилера %s\nМаксимальная ставка: %s\n",
		h.memberService.DisplayName(ctx, s.Dealer), common.FormatMoney(s.Max)))
	for _, st := range s.Stakes {
		sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n",
			h.memberService.DisplayName(ctx, st.Better), common.FormatMoney(st.Amount), common.FormatSignedMoney(st.Delta)))
	}
	sb.WriteString(fmt.Sprintf("Банк: %s", common.FormatMoney(s.Total)))
	return sb.String()
}

func (h *Handler) replyError(ctx context.Context, msg notify.Message, err error, logText string) {
	if common.IsUserError(err) {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}
	log.WithError(err).WithField("user_id", msg.UserID).Error(logText)
	h.reply(ctx, msg, "❌ "+logText)
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
