// Package admin — handlers.go обрабатывает админ-команды:
// !вход, !выход, !выдать, !изъять, !розыгрыш, !налоги.
// Вход только в личных сообщениях, остальные команды требуют активной сессии.
package admin

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/lottery"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/features/tax"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service        *Service
	memberService  *members.Service
	lotteryService *lottery.Service
	taxService     *tax.Service
	sender         notify.Sender
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(service *Service, memberService *members.Service, lotteryService *lottery.Service,
	taxService *tax.Service, sender notify.Sender) *Handler {
	return &Handler{
		service:        service,
		memberService:  memberService,
		lotteryService: lotteryService,
		taxService:     taxService,
		sender:         sender,
	}
}

// HandleLogin обрабатывает !вход <пароль>.
func (h *Handler) HandleLogin(ctx context.Context, msg notify.Message, args []string) {
	if !msg.IsDM {
		h.reply(ctx, msg, "🔐 Вход только в личных сообщениях боту")
		return
	}
	if len(args) != 1 {
		h.reply(ctx, msg, "❌ Формат: !вход пароль")
		return
	}

	session, err := h.service.Login(ctx, msg.UserID, args[0])
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка входа")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("✅ Аутентификация успешна! Сессия до %s", common.FormatDateTime(session.ExpiresAt)))
}

// HandleLogout обрабатывает !выход.
func (h *Handler) HandleLogout(ctx context.Context, msg notify.Message, _ []string) {
	if !h.authorized(ctx, msg) {
		return
	}
	if err := h.service.Logout(ctx, msg.UserID); err != nil {
		h.replyError(ctx, msg, err, "Ошибка выхода")
		return
	}
	h.reply(ctx, msg, "👋 Сессия завершена")
}

// HandleGive обрабатывает !выдать @user сумма.
func (h *Handler) HandleGive(ctx context.Context, msg notify.Message, args []string) {
	userID, amount, ok := h.parseTarget(ctx, msg, args, "!выдать")
	if !ok {
		return
	}
	if err := h.service.Give(ctx, msg.UserID, userID, amount); err != nil {
		h.replyError(ctx, msg, err, "Ошибка начисления")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("✅ Начислено %s → %s", common.FormatMoney(amount), notify.Mention(userID)))
}

// HandleTake обрабатывает !изъять @user сумма.
func (h *Handler) HandleTake(ctx context.Context, msg notify.Message, args []string) {
	userID, amount, ok := h.parseTarget(ctx, msg, args, "!изъять")
	if !ok {
		return
	}
	if err := h.service.Take(ctx, msg.UserID, userID, amount); err != nil {
		h.replyError(ctx, msg, err, "Ошибка списания")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("✅ Списано %s у %s", common.FormatMoney(amount), notify.Mention(userID)))
}

// HandleDraw обрабатывает !розыгрыш: внеочередной розыгрыш лотереи.
func (h *Handler) HandleDraw(ctx context.Context, msg notify.Message, _ []string) {
	if !h.authorized(ctx, msg) {
		return
	}
	d, err := h.lotteryService.Draw(ctx, time.Now())
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка розыгрыша")
		return
	}
	if d.Tickets == 0 {
		h.reply(ctx, msg, "🎰 Розыгрыш проведён: билетов не было")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("🎰 Розыгрыш проведён: %d билетов, фонд %s", d.Tickets, common.FormatMoney(d.Pool)))
}

// HandleTaxes обрабатывает !налоги: внеочередной сбор налога.
func (h *Handler) HandleTaxes(ctx context.Context, msg notify.Message, _ []string) {
	if !h.authorized(ctx, msg) {
		return
	}
	statements, err := h.taxService.CollectTaxes(ctx, time.Now())
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка сбора налога")
		return
	}
	var total int64
	for _, st := range statements {
		total += st.Tax
	}
	h.reply(ctx, msg, fmt.Sprintf("🧾 Налог начислен %d счетам, всего %s", len(statements), common.FormatMoney(total)))
}

func (h *Handler) parseTarget(ctx context.Context, msg notify.Message, args []string, command string) (int64, int64, bool) {
	if !h.authorized(ctx, msg) {
		return 0, 0, false
	}
	if len(args) < 2 {
		h.reply(ctx, msg, fmt.Sprintf("❌ Формат: %s @пользователь сумма", command))
		return 0, 0, false
	}
	userID, err := h.memberService.ResolveUser(ctx, args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Пользователь не найден")
		return 0, 0, false
	}
	amount, err := common.ParseMoney(args[1])
	if err != nil || amount <= 0 {
		h.reply(ctx, msg, "❌ Сумма должна быть положительным числом")
		return 0, 0, false
	}
	return userID, amount, true
}

// authorized отвечает ошибкой и возвращает false без активной сессии.
func (h *Handler) authorized(ctx context.Context, msg notify.Message) bool {
	if err := h.service.Authorize(ctx, msg.UserID); err != nil {
		h.replyError(ctx, msg, err, "Ошибка проверки прав")
		return false
	}
	return true
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
