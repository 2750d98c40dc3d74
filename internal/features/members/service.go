// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис регистрирует участников и превращает аргументы команд
// (упоминания, ID, имена) в Discord user ID.
package members

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Service управляет участниками сервера.
type Service struct {
	store Store

	// последние сохранённые имена, чтобы не писать в БД на каждое сообщение
	mu    sync.Mutex
	known map[int64]string
}

// NewService создаёт новый сервис участников.
func NewService(store Store) *Service {
	return &Service{store: store, known: make(map[int64]string)}
}

// HandleNewMember регистрирует вступившего участника (или обновляет вернувшегося).
func (s *Service) HandleNewMember(ctx context.Context, userID int64, username, displayName string) error {
	if err := s.store.Upsert(ctx, &Member{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	}); err != nil {
		return fmt.Errorf("ошибка регистрации участника: %w", err)
	}
	s.remember(userID, username, displayName)

	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": username,
	}).Info("Участник зарегистрирован")
	return nil
}

// EnsureMember гарантирует, что участник есть в базе с актуальными именами.
// Вызывается на каждое сообщение; запись в БД только при изменении.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, displayName string) error {
	s.mu.Lock()
	prev, ok := s.known[userID]
	s.mu.Unlock()
	if ok && prev == username+"\x00"+displayName {
		return nil
	}
	if err := s.store.Upsert(ctx, &Member{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	}); err != nil {
		return err
	}
	s.remember(userID, username, displayName)
	return nil
}

func (s *Service) remember(userID int64, username, displayName string) {
	s.mu.Lock()
	s.known[userID] = username + "\x00" + displayName
	s.mu.Unlock()
}

// IsMember проверяет, писал ли пользователь на сервере.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.store.Exists(ctx, userID)
}

// GetByUserID возвращает участника по Discord user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.store.GetByUserID(ctx, userID)
}

// ResolveUser превращает аргумент команды в user ID.
// Понимает <@id>, <@!id>, голый ID и имя (с @ или без).
func (s *Service) ResolveUser(ctx context.Context, arg string) (int64, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimPrefix(strings.TrimSuffix(arg[2:], ">"), "!")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	name := strings.TrimPrefix(arg, "@")
	if name == "" {
		return 0, common.ErrUserNotFound
	}
	m, err := s.store.GetByUsername(ctx, name)
	if err != nil {
		return 0, err
	}
	return m.UserID, nil
}

// DisplayName возвращает имя участника или упоминание, если он неизвестен.
func (s *Service) DisplayName(ctx context.Context, userID int64) string {
	m, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrUserNotFound) {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось получить имя участника")
		}
		return notify.Mention(userID)
	}
	return m.Name()
}
