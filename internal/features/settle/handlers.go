// Package settle — handlers.go обрабатывает команду !расчёт и её подкоманды:
// старт, вход, выход, инфо, отмена, подтвердить, список.
package settle

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

const usage = "❌ Формат: !расчёт старт <множитель> | вход @дилер <значение> | выход @дилер | " +
	"инфо [@дилер] | отмена | подтвердить | список"

// Handler обрабатывает команды расчёта.
type Handler struct {
	service       *Service
	memberService *members.Service
	sender        notify.Sender
}

// NewHandler создаёт обработчик расчётов.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender) *Handler {
	return &Handler{service: service, memberService: memberService, sender: sender}
}

// HandleSettle разбирает подкоманду !расчёт.
func (h *Handler) HandleSettle(ctx context.Context, msg notify.Message, args []string) {
	if len(args) == 0 {
		h.reply(ctx, msg, usage)
		return
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	switch sub {
	case "старт":
		if len(rest) < 1 {
			h.reply(ctx, msg, usage)
			return
		}
		multiplier, err := common.ParseDecimal(rest[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Множитель должен быть числом")
			return
		}
		summary, err := h.service.Start(msg.UserID, multiplier)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("🧮 %s открыл расчёт с множителем ×%s\n"+
			"Вход: !расчёт вход %s <значение>, подтверждение: !расчёт подтвердить.\n"+
			"После перезапуска бота незавершённые расчёты сбрасываются без выплат.",
			notify.Mention(msg.UserID), summary.Multiplier.StringFixed(2), notify.Mention(msg.UserID)))

	case "вход":
		if len(rest) < 2 {
			h.reply(ctx, msg, usage)
			return
		}
		dealer, err := h.memberService.ResolveUser(ctx, rest[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Дилер не найден")
			return
		}
		value, err := common.ParseDecimal(rest[1])
		if err != nil {
			h.reply(ctx, msg, "❌ Значение должно быть числом")
			return
		}
		summary, err := h.service.Join(dealer, msg.UserID, value)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("%s участвует в расчёте\n\n%s",
			notify.Mention(msg.UserID), h.formatSummary(ctx, summary)))

	case "выход":
		if len(rest) < 1 {
			h.reply(ctx, msg, usage)
			return
		}
		dealer, err := h.memberService.ResolveUser(ctx, rest[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Дилер не найден")
			return
		}
		summary, err := h.service.Leave(dealer, msg.UserID)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("%s вышел из расчёта\n\n%s",
			notify.Mention(msg.UserID), h.formatSummary(ctx, summary)))

	case "инфо":
		dealer := msg.UserID
		if len(rest) > 0 {
			id, err := h.memberService.ResolveUser(ctx, rest[0])
			if err != nil {
				h.reply(ctx, msg, "❌ Дилер не найден")
				return
			}
			dealer = id
		}
		summary, err := h.service.Info(dealer)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, h.formatSummary(ctx, summary))

	case "отмена":
		if err := h.service.Cancel(msg.UserID); err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("%s отменил расчёт", notify.Mention(msg.UserID)))

	case "подтвердить":
		h.handleConfirm(ctx, msg)

	case "список":
		sessions := h.service.List()
		if len(sessions) == 0 {
			h.reply(ctx, msg, "Открытых расчётов нет")
			return
		}
		var sb strings.Builder
		sb.WriteString("🧮 Открытые расчёты:\n")
		for _, s := range sessions {
			sb.WriteString(fmt.Sprintf("• %s: ×%s, участников %d\n",
				h.memberService.DisplayName(ctx, s.Dealer), s.Multiplier.StringFixed(2), len(s.Entries)))
		}
		h.reply(ctx, msg, sb.String())

	default:
		h.reply(ctx, msg, usage)
	}
}

func (h *Handler) handleConfirm(ctx context.Context, msg notify.Message) {
	result, err := h.service.Confirm(ctx, msg.UserID)
	if err != nil && !result.Settled {
		h.replyError(ctx, msg, err)
		return
	}
	if err != nil {
		log.WithError(err).WithField("dealer", msg.UserID).Error("Часть выплат расчёта не применена")
	}
	if !result.Settled {
		h.reply(ctx, msg, "Участников не больше одного, расчёт закрыт без выплат\n\n"+h.formatSummary(ctx, result.Summary))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ Расчёт %s завершён\n", notify.Mention(msg.UserID)))
	for _, e := range result.Summary.Entries {
		if e.Payout >= 0 {
			sb.WriteString(fmt.Sprintf("• %s получает %s", notify.Mention(e.Participant), common.FormatMoney(e.Payout)))
		} else {
			sb.WriteString(fmt.Sprintf("• с %s списано %s", notify.Mention(e.Participant), common.FormatMoney(-e.Payout)))
		}
		if debt, ok := result.Debts[e.Participant]; ok {
			sb.WriteString(fmt.Sprintf(" (в налог: %s)", common.FormatMoney(debt)))
		}
		sb.WriteString("\n")
	}
	h.reply(ctx, msg, sb.String())
}

func (h *Handler) formatSummary(ctx context.Context, s Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧮 Расчёт дилера %s, множитель ×%s\n",
		h.memberService.DisplayName(ctx, s.Dealer), s.Multiplier.StringFixed(2)))
	if len(s.Entries) == 0 {
		sb.WriteString("Участников пока нет")
		return sb.String()
	}
	for _, e := range s.Entries {
		sb.WriteString(fmt.Sprintf("• %s, %s: %s\n",
			h.memberService.DisplayName(ctx, e.Participant), e.Value.StringFixed(2), common.FormatSignedMoney(e.Payout)))
	}
	return sb.String()
}

func (h *Handler) replyError(ctx context.Context, msg notify.Message, err error) {
	if common.IsUserError(err) {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}
	log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка расчёта")
	h.reply(ctx, msg, "❌ Ошибка расчёта")
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
