// Package admin — service.go содержит аутентификацию и админ-операции над экономикой.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// Service управляет админ-доступом.
type Service struct {
	store   Store
	economy *economy.Service
	cfg     *config.Config
	now     func() time.Time
}

// NewService создаёт сервис админки.
func NewService(store Store, economyService *economy.Service, cfg *config.Config) *Service {
	return &Service{store: store, economy: economyService, cfg: cfg, now: time.Now}
}

// Login проверяет пароль и открывает сессию на AdminSessionTTL.
// 3 неудачные попытки за час блокируют вход.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	if !s.cfg.IsAdmin(userID) {
		return nil, common.ErrNotAdmin
	}
	now := s.now()

	attempts, err := s.store.FailedAttempts(ctx, userID, now.Add(-AttemptWindow))
	if err != nil {
		return nil, err
	}
	if attempts >= MaxFailedAttempts {
		return nil, common.ErrTooManyAttempts
	}

	match := VerifyPassword(password, s.cfg.AdminPasswordHash)
	if err := s.store.LogAttempt(ctx, userID, match, now); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return nil, common.ErrWrongPassword
	}

	session := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.AdminSessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Info("Администратор вошёл")
	return &session, nil
}

// Authorize проверяет права и действующую сессию.
func (s *Service) Authorize(ctx context.Context, userID int64) error {
	if !s.cfg.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	session, err := s.store.ActiveSession(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if session == nil {
		return common.ErrSessionExpired
	}
	return nil
}

// Logout завершает сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.DeleteSessions(ctx, userID)
}

// CleanupSessions удаляет истёкшие сессии. Вызывается по cron.
func (s *Service) CleanupSessions(ctx context.Context) (int64, error) {
	return s.store.CleanupExpired(ctx, s.now())
}

// Give начисляет пользователю amount от имени администратора.
func (s *Service) Give(ctx context.Context, adminID, userID, amount int64) error {
	if err := s.Authorize(ctx, adminID); err != nil {
		return err
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.economy.AddBalance(ctx, userID, amount, economy.TxTypeAdminGive, "Начисление администратором"); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID, "amount": amount}).Info("Админ начислил лофаны")
	return nil
}

// Take списывает amount; баланса должно хватать.
func (s *Service) Take(ctx context.Context, adminID, userID, amount int64) error {
	if err := s.Authorize(ctx, adminID); err != nil {
		return err
	}
	if err := s.economy.Withdraw(ctx, userID, amount, economy.TxTypeAdminTake, "Списание администратором"); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID, "amount": amount}).Info("Админ списал лофаны")
	return nil
}

// VerifyPassword проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// HashPassword строит хеш Argon2id для ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}
