package stats

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/notify"
)

// Handler обрабатывает !сегодня.
type Handler struct {
	tracker *Tracker
	sender  notify.Sender
}

// NewHandler создаёт обработчик статистики.
func NewHandler(tracker *Tracker, sender notify.Sender) *Handler {
	return &Handler{tracker: tracker, sender: sender}
}

// HandleToday показывает статистику за текущий день.
func (h *Handler) HandleToday(ctx context.Context, msg notify.Message, _ []string) {
	text := FormatDay(time.Now().UTC(), h.tracker.Today())
	if err := h.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}
