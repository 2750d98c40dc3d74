// Package admin реализует админ-команды с парольной аутентификацией.
// models.go описывает сессии и попытки входа.
package admin

import (
	"context"
	"time"
)

// MaxFailedAttempts неудачных попыток за AttemptWindow блокируют вход.
const (
	MaxFailedAttempts = 3
	AttemptWindow     = time.Hour
)

// Session — активная сессия администратора.
type Session struct {
	Token     string    `db:"session_token"` // uuid
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"authenticated_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Store хранит сессии и журнал попыток входа.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	// ActiveSession возвращает nil, если действующей сессии нет.
	ActiveSession(ctx context.Context, userID int64, now time.Time) (*Session, error)
	DeleteSessions(ctx context.Context, userID int64) error
	// CleanupExpired удаляет истёкшие сессии и старые попытки входа.
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
	LogAttempt(ctx context.Context, userID int64, success bool, at time.Time) error
	FailedAttempts(ctx context.Context, userID int64, since time.Time) (int, error)
}
