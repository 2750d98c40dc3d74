// Package pig — repository.go работает с таблицей pig_records.
package pig

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит рекорды в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рекордов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ensure(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pig_records (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка создания рекорда: %w", err)
	}
	return nil
}

func (r *Repository) UpdateBest(ctx context.Context, userID, score int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE pig_records SET score = $2, updated_at = NOW()
		WHERE user_id = $1 AND score < $2
	`, userID, score)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления рекорда: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Get(ctx context.Context, userID int64) (Record, bool, error) {
	var rec Record
	err := r.db.QueryRow(ctx, `
		SELECT user_id, score, updated_at FROM pig_records WHERE user_id = $1
	`, userID).Scan(&rec.UserID, &rec.Score, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("ошибка получения рекорда: %w", err)
	}
	return rec, true, nil
}

func (r *Repository) Top(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, score, updated_at FROM pig_records
		ORDER BY score DESC, updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рекордов: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.UserID, &rec.Score, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения рекорда: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
