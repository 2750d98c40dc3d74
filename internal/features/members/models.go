// Package members ведёт реестр участников Discord-сервера.
// models.go описывает структуры данных для работы с таблицей members.
package members

import (
	"context"
	"time"
)

// Member — участник сервера. Запись обновляется при каждом сообщении,
// чтобы рейтинги и упоминания показывали актуальные имена.
type Member struct {
	ID          int64     `db:"id"`           // Автоинкрементный ID записи в БД
	UserID      int64     `db:"user_id"`      // Discord user ID (snowflake)
	Username    string    `db:"username"`     // Уникальное имя Discord
	DisplayName string    `db:"display_name"` // Ник на сервере или глобальное имя (может быть пустым)
	JoinedAt    time.Time `db:"joined_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Name возвращает имя для показа: ник, если есть, иначе username.
func (m *Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// Store — хранилище участников.
type Store interface {
	// Upsert создаёт участника или обновляет его имена.
	Upsert(ctx context.Context, m *Member) error
	// GetByUserID возвращает common.ErrUserNotFound, если записи нет.
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	// GetByUsername ищет без учёта регистра по username и display_name.
	GetByUsername(ctx context.Context, username string) (*Member, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}
