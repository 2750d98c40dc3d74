// Package prediction — handlers.go обрабатывает команду !прогноз:
// старт, продлить, на, итог, инфо.
package prediction

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

const usage = "❌ Формат:\n" +
	"!прогноз старт <секунды> <название> | <исход 1> | <исход 2>\n" +
	"!прогноз продлить <секунды>\n" +
	"!прогноз на @дилер <1|2> <сумма>\n" +
	"!прогноз итог <1|2>\n" +
	"!прогноз инфо [@дилер]"

// Handler обрабатывает команды прогнозов.
type Handler struct {
	service       *Service
	memberService *members.Service
	sender        notify.Sender
	cfg           *config.Config
}

// NewHandler создаёт обработчик прогнозов.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender, cfg *config.Config) *Handler {
	return &Handler{service: service, memberService: memberService, sender: sender, cfg: cfg}
}

// HandlePrediction разбирает подкоманду !прогноз.
func (h *Handler) HandlePrediction(ctx context.Context, msg notify.Message, args []string) {
	if len(args) == 0 {
		h.reply(ctx, msg, usage)
		return
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	switch sub {
	case "старт":
		h.handleStart(ctx, msg, rest)
	case "продлить":
		if len(rest) < 1 {
			h.reply(ctx, msg, usage)
			return
		}
		seconds, err := strconv.Atoi(rest[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Укажите длительность в секундах")
			return
		}
		market, err := h.service.Extend(msg.UserID, time.Duration(seconds)*time.Second)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, "⏳ Приём ставок продлён\n\n"+h.formatMarket(ctx, market))
	case "на":
		h.handleStake(ctx, msg, rest)
	case "итог":
		h.handleEnd(ctx, msg, rest)
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
		market, err := h.service.Info(dealer)
		if err != nil {
			h.replyError(ctx, msg, err)
			return
		}
		h.reply(ctx, msg, h.formatMarket(ctx, market))
	default:
		h.reply(ctx, msg, usage)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 2 {
		h.reply(ctx, msg, usage)
		return
	}
	seconds, err := strconv.Atoi(args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Укажите длительность в секундах")
		return
	}
	parts := strings.Split(strings.Join(args[1:], " "), "|")
	if len(parts) != 3 {
		h.reply(ctx, msg, usage)
		return
	}

	market, err := h.service.Start(ctx, msg.UserID, StartRequest{
		Title:    strings.TrimSpace(parts[0]),
		Outcome1: strings.TrimSpace(parts[1]),
		Outcome2: strings.TrimSpace(parts[2]),
		Duration: time.Duration(seconds) * time.Second,
	})
	if err != nil {
		h.replyError(ctx, msg, err)
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("🔮 %s открыл прогноз (плата %s)\n"+
		"Ставка: !прогноз на %s <1|2> <сумма>, закрыть: !прогноз итог <1|2>\n\n%s",
		notify.Mention(msg.UserID), common.FormatMoney(h.cfg.PredictionFee),
		notify.Mention(msg.UserID), h.formatMarket(ctx, market)))
}

func (h *Handler) handleStake(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 3 {
		h.reply(ctx, msg, usage)
		return
	}
	dealer, err := h.memberService.ResolveUser(ctx, args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Дилер не найден")
		return
	}
	outcome, err := strconv.Atoi(args[1])
	if err != nil {
		h.reply(ctx, msg, "❌ "+common.ErrInvalidOutcome.Error())
		return
	}
	amount, err := common.ParseMoney(args[2])
	if err != nil {
		h.reply(ctx, msg, "❌ Сумма должна быть числом")
		return
	}

	market, err := h.service.Stake(ctx, dealer, msg.UserID, outcome, amount)
	if err != nil {
		h.replyError(ctx, msg, err)
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("%s ставит %s на «%s»\n\n%s",
		notify.Mention(msg.UserID), common.FormatMoney(amount), market.Outcomes[outcome-1], h.formatMarket(ctx, market)))
}

func (h *Handler) handleEnd(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 1 {
		h.reply(ctx, msg, usage)
		return
	}
	outcome, err := strconv.Atoi(args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ "+common.ErrInvalidOutcome.Error())
		return
	}
	res, err := h.service.End(ctx, msg.UserID, outcome)
	if err != nil && res.Outcome == 0 {
		h.replyError(ctx, msg, err)
		return
	}

	m := res.Market
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏁 Прогноз «%s» завершён\n", m.Title))
	sb.WriteString(fmt.Sprintf("> 1: %s\n> 2: %s\n> Банк: %s\n> Победил исход %d (%s)\n",
		common.FormatMoney(m.PoolTotal(0)), common.FormatMoney(m.PoolTotal(1)),
		common.FormatMoney(res.Total), outcome, m.Outcomes[outcome-1]))
	if res.Refunded {
		sb.WriteString("На победивший исход никто не ставил, банк забирает дилер.")
	} else {
		winners := make([]int64, 0, len(res.Payouts))
		for id := range res.Payouts {
			winners = append(winners, id)
		}
		sort.Slice(winners, func(i, j int) bool { return res.Payouts[winners[i]] > res.Payouts[winners[j]] })
		for _, id := range winners {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", notify.Mention(id), common.FormatMoney(res.Payouts[id])))
		}
	}
	if err != nil {
		// Рынок уже закрыт, часть выплат не прошла
		log.WithError(err).WithField("dealer", msg.UserID).Error("Ошибка выплат прогноза")
		sb.WriteString("\n⚠️ Не все выплаты прошли, обратитесь к администратору.")
	}
	h.reply(ctx, msg, sb.String())
}

func (h *Handler) formatMarket(ctx context.Context, m Market) string {
	return fmt.Sprintf("🔮 %s (дилер %s)\nПриём ставок до %s\n"+
		"1. %s — %s, участников %d\n2. %s — %s, участников %d",
		m.Title, h.memberService.DisplayName(ctx, m.Dealer),
		common.FormatDateTime(m.ClosesAt.In(h.cfg.Location())),
		m.Outcomes[0], common.FormatMoney(m.PoolTotal(0)), len(m.Pools[0]),
		m.Outcomes[1], common.FormatMoney(m.PoolTotal(1)), len(m.Pools[1]))
}

func (h *Handler) replyError(ctx context.Context, msg notify.Message, err error) {
	if common.IsUserError(err) {
		h.reply(ctx, msg, "❌ "+userText(err))
		return
	}
	log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка прогноза")
	h.reply(ctx, msg, "❌ Ошибка прогноза")
}

// userText отрезает подробности валидатора, оставляя текст ошибки-маркера.
func userText(err error) string {
	text := err.Error()
	if i := strings.Index(text, ": "); i > 0 {
		return text[:i]
	}
	return text
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
