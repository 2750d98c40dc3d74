// Package lottery — handlers.go обрабатывает команду !лотерея.
package lottery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/notify"
)

const usage = "❌ Формат:\n" +
	"!лотерея авто <количество>\n" +
	"!лотерея купить <6 чисел от 1 до 100>\n" +
	"!лотерея мои\n" +
	"!лотерея статус"

// Handler обрабатывает команды лотереи.
type Handler struct {
	service *Service
	sender  notify.Sender
}

// NewHandler создаёт обработчик лотереи.
func NewHandler(service *Service, sender notify.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleLottery разбирает подкоманду !лотерея.
func (h *Handler) HandleLottery(ctx context.Context, msg notify.Message, args []string) {
	if len(args) == 0 {
		h.reply(ctx, msg, usage)
		return
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	switch sub {
	case "авто":
		count := 1
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				h.reply(ctx, msg, usage)
				return
			}
			count = n
		}
		tickets, err := h.service.BuyAuto(ctx, msg.UserID, count)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("🎟 Куплено %d %s (всего %s)\n", len(tickets), common.PluralizeTickets(int64(len(tickets))),
			common.FormatMoney(int64(len(tickets))*h.service.cfg.LotteryPrice)))
		for _, t := range tickets {
			sb.WriteString("• " + t.String() + "\n")
		}
		h.reply(ctx, msg, sb.String())
	case "купить":
		numbers := make([]int, 0, len(rest))
		for _, a := range rest {
			n, err := strconv.Atoi(strings.Trim(a, ","))
			if err != nil {
				h.replyError(ctx, msg, common.ErrInvalidTicket)
				return
			}
			numbers = append(numbers, n)
		}
		ticket, err := h.service.BuyManual(ctx, msg.UserID, numbers)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("🎟 Билет куплен за %s: %s",
			common.FormatMoney(h.service.cfg.LotteryPrice), ticket))
	case "мои":
		tickets, err := h.service.MyTickets(ctx, msg.UserID)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		if len(tickets) == 0 {
			h.reply(ctx, msg, "🎟 У вас нет билетов")
			return
		}
		h.reply(ctx, msg, "🎟 Ваши билеты:\n"+formatTickets(tickets))
	case "статус":
		st, err := h.service.Status(ctx)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, FormatStatus(st))
	default:
		h.reply(ctx, msg, usage)
	}
}

// FormatStatus форматирует состояние лотереи.
func FormatStatus(st *Status) string {
	var sb strings.Builder
	sb.WriteString("🎰 Лотерея\n")
	sb.WriteString(fmt.Sprintf("Продано: %d %s, держателей: %d %s\n",
		st.Tickets, common.PluralizeTickets(st.Tickets), st.Holders, common.PluralizePeople(int64(st.Holders))))
	sb.WriteString(fmt.Sprintf("Фонд: %s\n", common.FormatMoney(st.Pool)))
	if st.LastDraw != nil {
		sb.WriteString(fmt.Sprintf("Прошлый розыгрыш: %s", common.FormatDateTime(*st.LastDraw)))
		if len(st.LastNumbers) > 0 {
			sb.WriteString(" (" + st.LastNumbers.String() + ")")
		}
		sb.WriteString(fmt.Sprintf("\nСледующий: %s", common.FormatDateTime(*st.NextDraw)))
	} else {
		sb.WriteString("Розыгрышей ещё не было")
	}
	return sb.String()
}

// FormatDraw форматирует итоги розыгрыша для общего канала.
func FormatDraw(d *Draw) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎰 %s: проведён розыгрыш лотереи\n", d.DrawnAt.Format("02.01.2006")))
	sb.WriteString(fmt.Sprintf("Выигрышные числа: %s\n", d.Winning))
	sb.WriteString(fmt.Sprintf("Билетов: %d, фонд: %s\n", d.Tickets, common.FormatMoney(d.Pool)))
	for i, w := range d.Winners {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, notify.Mention(w.UserID), common.FormatMoney(w.Payout)))
	}
	return sb.String()
}

// FormatWinner форматирует личное сообщение держателю билетов.
func FormatWinner(d *Draw, w Winner) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎰 Розыгрыш %s, выигрышные числа: %s\n", d.DrawnAt.Format("02.01.2006"), d.Winning))
	sb.WriteString("Ваши билеты:\n")
	sb.WriteString(formatTickets(w.Tickets))
	sb.WriteString(fmt.Sprintf("Выигрыш: %s", common.FormatMoney(w.Payout)))
	return sb.String()
}

func formatTickets(tickets []Ticket) string {
	var sb strings.Builder
	for _, t := range tickets {
		sb.WriteString(fmt.Sprintf("• %s (%d шт.)\n", t.Numbers, t.Quantity))
	}
	return sb.String()
}

func (h *Handler) replyError(ctx context.Context, msg notify.Message, err error) {
	if common.IsUserError(err) {
		h.reply(ctx, msg, "❌ "+err.Error())
		return
	}
	log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка лотереи")
	h.reply(ctx, msg, "❌ Ошибка лотереи, попробуйте позже")
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
