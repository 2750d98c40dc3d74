// Package scratch — repository.go выполняет операции с таблицами games и game_stats.
package scratch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами игр в БД.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий игр.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveGame сохраняет результат игры в таблицу games.
func (r *Repository) SaveGame(ctx context.Context, game *Game) error {
	query := `
		INSERT INTO games (user_id, game_type, bet_amount, result_amount, game_data)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		game.UserID, game.GameType, game.BetAmount, game.ResultAmount, game.GameData,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения игры: %w", err)
	}
	return nil
}

// GetStats возвращает статистику игрока или nil.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	query := `
		SELECT user_id, total_plays, total_wagered, total_won, biggest_win, return_rate
		FROM game_stats
		WHERE user_id = $1 AND game_type = $2
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, userID, GameTypeScratch).Scan(
		&s.UserID, &s.TotalPlays, &s.TotalWagered, &s.TotalWon, &s.BiggestWin, &s.ReturnRate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return &s, nil
}

// UpdateStats обновляет статистику после игры одним запросом.
func (r *Repository) UpdateStats(ctx context.Context, userID, wagered, won int64) error {
	query := `
		INSERT INTO game_stats (user_id, game_type, total_plays, total_wagered, total_won, biggest_win, return_rate)
		VALUES ($1, $2, 1, $3, $4, $4,
			CASE WHEN $3 = 0 THEN 0 ELSE ($4::DECIMAL / $3::DECIMAL) * 100 END)
		ON CONFLICT (user_id, game_type) DO UPDATE SET
			total_plays = game_stats.total_plays + 1,
			total_wagered = game_stats.total_wagered + $3,
			total_won = game_stats.total_won + $4,
			biggest_win = GREATEST(game_stats.biggest_win, $4),
			return_rate = CASE
				WHEN (game_stats.total_wagered + $3) = 0 THEN 0
				ELSE ((game_stats.total_won + $4)::DECIMAL / (game_stats.total_wagered + $3)::DECIMAL) * 100
			END,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, userID, GameTypeScratch, wagered, won)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	return nil
}
