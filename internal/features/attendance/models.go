// Package attendance управляет ежедневными отметками и сериями (стриками).
// models.go описывает запись посещаемости и таблицу наград.
package attendance

import (
	"context"
	"time"
)

// Attendance — запись посещаемости пользователя.
// Серия растёт, если отметка была вчера, иначе начинается заново.
type Attendance struct {
	UserID     int64     `db:"user_id"`
	Streak     int       `db:"streak"`      // Текущая серия (дней подряд)
	MaxStreak  int       `db:"max_streak"`  // Личный рекорд
	LastAttend time.Time `db:"last_attend"` // Дата последней отметки (полночь)
}

// CheckIn — итог отметки.
type CheckIn struct {
	Attendance
	Reward   int64 // Начислено до удержания налога
	Net      int64
	Withheld int64
}

// Reward возвращает награду за day-й день серии: base × min(day, maxDays).
//
//	День 1 → 10 Ł, День 2 → 20 Ł, ..., День 7+ → 70 Ł (при base = 10 Ł)
func Reward(day int, base int64, maxDays int) int64 {
	if day < 1 {
		return 0
	}
	if day > maxDays {
		day = maxDays
	}
	return int64(day) * base
}

// Store хранит записи посещаемости.
type Store interface {
	// Get возвращает ok == false, если отметок ещё не было.
	Get(ctx context.Context, userID int64) (Attendance, bool, error)
	Save(ctx context.Context, a Attendance) error
	// Top возвращает лучшие текущие серии.
	Top(ctx context.Context, limit int) ([]Attendance, error)
}
