// Package attendance — repository.go выполняет операции с таблицей attendance.
package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей attendance.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий посещаемости.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает запись пользователя.
func (r *Repository) Get(ctx context.Context, userID int64) (Attendance, bool, error) {
	query := `
		SELECT user_id, streak, max_streak, last_attend
		FROM attendance
		WHERE user_id = $1
	`
	var a Attendance
	err := r.db.QueryRow(ctx, query, userID).Scan(&a.UserID, &a.Streak, &a.MaxStreak, &a.LastAttend)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendance{}, false, nil
	}
	if err != nil {
		return Attendance{}, false, fmt.Errorf("ошибка получения посещаемости (user_id=%d): %w", userID, err)
	}
	return a, true, nil
}

// Save создаёт или перезаписывает запись.
func (r *Repository) Save(ctx context.Context, a Attendance) error {
	query := `
		INSERT INTO attendance (user_id, streak, max_streak, last_attend)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET streak = EXCLUDED.streak, max_streak = EXCLUDED.max_streak,
		    last_attend = EXCLUDED.last_attend, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, a.UserID, a.Streak, a.MaxStreak, a.LastAttend)
	if err != nil {
		return fmt.Errorf("ошибка сохранения посещаемости: %w", err)
	}
	return nil
}

// Top возвращает лучшие текущие серии.
func (r *Repository) Top(ctx context.Context, limit int) ([]Attendance, error) {
	query := `
		SELECT user_id, streak, max_streak, last_attend
		FROM attendance
		ORDER BY streak DESC, user_id ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рейтинга серий: %w", err)
	}
	defer rows.Close()

	var out []Attendance
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.UserID, &a.Streak, &a.MaxStreak, &a.LastAttend); err != nil {
			return nil, fmt.Errorf("ошибка чтения серии: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
