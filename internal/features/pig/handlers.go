// Package pig — handlers.go обрабатывает !свинья и подкоманды.
package pig

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды игры «Свинья».
type Handler struct {
	service       *Service
	memberService *members.Service
	sender        notify.Sender
}

// NewHandler создаёт обработчик игры.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender) *Handler {
	return &Handler{service: service, memberService: memberService, sender: sender}
}

// HandlePig обрабатывает !свинья [старт|рекорды|счёт|правила].
func (h *Handler) HandlePig(ctx context.Context, msg notify.Message, args []string) {
	sub := "старт"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "старт":
		h.handlePlay(ctx, msg)
	case "рекорды":
		h.handleTop(ctx, msg)
	case "счёт", "счет":
		rec, ok, err := h.service.Best(ctx, msg.UserID)
		if err != nil {
			h.replyInternal(ctx, msg, err)
			return
		}
		if !ok {
			h.reply(ctx, msg, "🐷 Вы ещё не играли в «Свинью»")
			return
		}
		h.reply(ctx, msg, fmt.Sprintf("🐷 Ваш рекорд: %d %s", rec.Score, common.PluralizePoints(rec.Score)))
	case "правила":
		h.reply(ctx, msg, fmt.Sprintf("🐷 Правила «Свиньи»\n"+
			"Взнос: %s\n"+
			"1. Бросайте кубик: выпавшие очки прибавляются к счёту.\n"+
			"2. Единица обнуляет счёт и заканчивает игру, взнос не возвращается.\n"+
			"3. Остановитесь в любой момент, чтобы записать счёт.\n"+
			"На каждый ответ %s.",
			common.FormatMoney(h.service.cfg.PigStartCost), h.service.cfg.PromptTimeout))
	default:
		h.reply(ctx, msg, "❌ Формат: !свинья [старт|рекорды|счёт|правила]")
	}
}

func (h *Handler) handlePlay(ctx context.Context, msg notify.Message) {
	game, err := h.service.Play(ctx, msg.ChannelID, msg.UserID)
	if err != nil {
		if common.IsUserError(err) {
			h.reply(ctx, msg, "❌ "+err.Error())
			return
		}
		h.replyInternal(ctx, msg, err)
		return
	}

	switch game.Outcome {
	case OutcomeTimeout:
		h.reply(ctx, msg, "⌛ Время вышло, игра отменена. Взнос не возвращается.")
	case OutcomeBusted:
		h.reply(ctx, msg, "🎲 Выпала единица, счёт обнулён.")
	default:
		text := fmt.Sprintf("🐷 Игра окончена: %d %s", game.Score, common.PluralizePoints(game.Score))
		if game.NewBest {
			text += "\n🏆 Новый личный рекорд!"
		}
		h.reply(ctx, msg, text)
	}
}

func (h *Handler) handleTop(ctx context.Context, msg notify.Message) {
	records, err := h.service.Top(ctx)
	if err != nil {
		h.replyInternal(ctx, msg, err)
		return
	}
	if len(records) == 0 {
		h.reply(ctx, msg, "🐷 Рекордов пока нет")
		return
	}
	var sb strings.Builder
	sb.WriteString("🏆 Рекорды «Свиньи»:\n")
	for i, rec := range records {
		sb.WriteString(fmt.Sprintf("%d. %s — %d\n", i+1, h.memberService.DisplayName(ctx, rec.UserID), rec.Score))
	}
	h.reply(ctx, msg, sb.String())
}

func (h *Handler) replyInternal(ctx context.Context, msg notify.Message, err error) {
	log.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка игры «Свинья»")
	h.reply(ctx, msg, "❌ Ошибка игры, попробуйте позже")
}

func (h *Handler) reply(ctx context.Context, msg notify.Message, text string) {
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
