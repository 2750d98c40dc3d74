// Package members — handlers.go обрабатывает события Discord, связанные с участниками.
// Основное событие: новый пользователь вступил на сервер (GuildMemberAdd).
package members

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleJoin регистрирует вступившего участника.
func (h *Handler) HandleJoin(ctx context.Context, userID int64, username, displayName string) {
	if err := h.service.HandleNewMember(ctx, userID, username, displayName); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка регистрации нового участника")
	}
}
