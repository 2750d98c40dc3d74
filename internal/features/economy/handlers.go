// Package economy — handlers.go обрабатывает команды:
// !баланс, !инвентарь, !перевод, !рейтинг, !история.
package economy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service       *Service
	memberService *members.Service // для поиска получателя и имён в рейтинге
	sender        notify.Sender
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, memberService *members.Service, sender notify.Sender) *Handler {
	return &Handler{
		service:       service,
		memberService: memberService,
		sender:        sender,
	}
}

// HandleBalance обрабатывает !баланс, !баланс всего и !баланс @user.
//
// Формат ответа:
//
//	💰 Баланс: 150.00 Ł
//	🧾 Налоговый долг: 0.00 Ł
func (h *Handler) HandleBalance(ctx context.Context, msg notify.Message, args []string) {
	if len(args) > 0 && strings.EqualFold(args[0], "всего") {
		h.handleAssets(ctx, msg)
		return
	}

	if len(args) > 0 {
		targetID, err := h.memberService.ResolveUser(ctx, args[0])
		if err != nil {
			h.reply(ctx, msg, "❌ Пользователь не найден")
			return
		}
		account, fee, err := h.service.CheckBalanceOf(ctx, msg.UserID, targetID)
		if err != nil {
			h.replyError(ctx, msg, err, "Ошибка просмотра баланса")
			return
		}
		text := fmt.Sprintf("💰 Баланс %s: %s\n🧾 Налоговый долг: %s",
			h.memberService.DisplayName(ctx, targetID),
			common.FormatMoney(account.Balance),
			common.FormatMoney(account.Tax))
		if fee > 0 {
			text += fmt.Sprintf("\nКомиссия за просмотр: %s", common.FormatMoney(fee))
		}
		h.reply(ctx, msg, text)
		return
	}

	account, err := h.service.GetAccount(ctx, msg.UserID)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения баланса")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("💰 Баланс: %s\n🧾 Налоговый долг: %s",
		common.FormatMoney(account.Balance), common.FormatMoney(account.Tax)))
}

func (h *Handler) handleAssets(ctx context.Context, msg notify.Message) {
	price, err := h.service.PPLPrice(ctx)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения цены PPL")
		return
	}
	assets, err := h.service.TotalAssets(ctx, msg.UserID, price)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка подсчёта активов")
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("📊 Всего активов (за вычетом налога): %s", common.FormatMoney(assets)))
}

// HandleInventory обрабатывает !инвентарь.
func (h *Handler) HandleInventory(ctx context.Context, msg notify.Message, _ []string) {
	items, err := h.service.GetInventory(ctx, msg.UserID)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения инвентаря")
		return
	}
	if len(items) == 0 {
		h.reply(ctx, msg, "🎒 Инвентарь пуст")
		return
	}

	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("🎒 Инвентарь:\n")
	for _, name := range names {
		line := items[name]
		if line.UnitPrice > 0 {
			sb.WriteString(fmt.Sprintf("• %s × %s (по %s)\n", name, common.FormatNumber(line.Quantity), common.FormatMoney(line.UnitPrice)))
		} else {
			sb.WriteString(fmt.Sprintf("• %s × %s\n", name, common.FormatNumber(line.Quantity)))
		}
	}
	h.reply(ctx, msg, sb.String())
}

// HandleTransfer обрабатывает команду !перевод @user 100.
// Сумма в лофанах, допускаются копейки: !перевод @user 12.50
func (h *Handler) HandleTransfer(ctx context.Context, msg notify.Message, args []string) {
	if len(args) < 2 {
		h.reply(ctx, msg, "❌ Формат: !перевод @пользователь сумма")
		return
	}

	recipientID, err := h.memberService.ResolveUser(ctx, args[0])
	if err != nil {
		h.reply(ctx, msg, "❌ Пользователь не найден")
		return
	}

	amount, err := common.ParseMoney(args[1])
	if err != nil || amount <= 0 {
		h.reply(ctx, msg, "❌ Сумма должна быть положительным числом")
		return
	}

	if err := h.service.Transfer(ctx, msg.UserID, recipientID, amount); err != nil {
		h.replyError(ctx, msg, err, "Ошибка выполнения перевода")
		return
	}

	newBalance, _ := h.service.GetBalance(ctx, msg.UserID)
	h.reply(ctx, msg, fmt.Sprintf("✅ Переведено %s → %s\nТвой баланс: %s",
		common.FormatMoney(amount), notify.Mention(recipientID), common.FormatMoney(newBalance)))
}

// HandleRanking обрабатывает !рейтинг: топ по балансу.
func (h *Handler) HandleRanking(ctx context.Context, msg notify.Message, _ []string) {
	entries, err := h.service.Ranking(ctx, 0)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения рейтинга")
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, msg, "🏆 Рейтинг пуст")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Рейтинг богачей:\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", e.Rank, h.memberService.DisplayName(ctx, e.UserID), common.FormatMoney(e.Balance)))
	}
	h.reply(ctx, msg, sb.String())
}

// HandleHistory обрабатывает !история: последние операции.
// Строки после пятой уходят под спойлер.
func (h *Handler) HandleHistory(ctx context.Context, msg notify.Message, _ []string) {
	transactions, err := h.service.History(ctx, msg.UserID)
	if err != nil {
		h.replyError(ctx, msg, err, "Ошибка получения истории")
		return
	}
	if len(transactions) == 0 {
		h.reply(ctx, msg, "📋 У вас пока нет операций")
		return
	}
	h.reply(ctx, msg, FormatHistory(msg.UserID, transactions))
}

// FormatHistory форматирует журнал операций пользователя.
func FormatHistory(userID int64, transactions []*Transaction) string {
	var lines []string
	for i, tx := range transactions {
		amount := tx.Amount
		if tx.FromUserID != nil && *tx.FromUserID == userID {
			amount = -amount
		}
		lines = append(lines, fmt.Sprintf("%d. %s | %s | %s",
			i+1, common.FormatDateTime(tx.CreatedAt), common.FormatSignedMoney(amount), tx.Description))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние операции (%d):\n", len(lines)))
	if len(lines) > 5 {
		sb.WriteString(strings.Join(lines[:5], "\n"))
		sb.WriteString("\n||" + strings.Join(lines[5:], "\n") + "||")
	} else {
		sb.WriteString(strings.Join(lines, "\n"))
	}
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
