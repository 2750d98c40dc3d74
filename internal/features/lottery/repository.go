// Package lottery — repository.go работает с таблицами lottery_tickets и lottery_draws.
package lottery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит билеты в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий лотереи.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AddTicket добавляет билеты; одинаковая комбинация увеличивает quantity.
func (r *Repository) AddTicket(ctx context.Context, userID int64, numbers Numbers, quantity int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO lottery_tickets (user_id, numbers, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, numbers) DO UPDATE
		SET quantity = lottery_tickets.quantity + EXCLUDED.quantity
	`, userID, toInt32(numbers), quantity)
	if err != nil {
		return fmt.Errorf("ошибка добавления билета: %w", err)
	}
	return nil
}

// UserTickets возвращает билеты одного пользователя.
func (r *Repository) UserTickets(ctx context.Context, userID int64) ([]Ticket, error) {
	return r.queryTickets(ctx, `
		SELECT user_id, numbers, quantity FROM lottery_tickets
		WHERE user_id = $1 ORDER BY numbers
	`, userID)
}

// AllTickets возвращает все проданные билеты.
func (r *Repository) AllTickets(ctx context.Context) ([]Ticket, error) {
	return r.queryTickets(ctx, `
		SELECT user_id, numbers, quantity FROM lottery_tickets
		ORDER BY user_id, numbers
	`)
}

func (r *Repository) queryTickets(ctx context.Context, query string, args ...any) ([]Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения билетов: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		var numbers []int32
		if err := rows.Scan(&t.UserID, &numbers, &t.Quantity); err != nil {
			return nil, fmt.Errorf("ошибка чтения билета: %w", err)
		}
		t.Numbers = fromInt32(numbers)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClearTickets удаляет все билеты после розыгрыша.
func (r *Repository) ClearTickets(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lottery_tickets`); err != nil {
		return fmt.Errorf("ошибка очистки билетов: %w", err)
	}
	return nil
}

// SaveDraw записывает итоги розыгрыша, выплаты хранятся в JSONB.
func (r *Repository) SaveDraw(ctx context.Context, d *Draw) error {
	winners, err := json.Marshal(d.Winners)
	if err != nil {
		return fmt.Errorf("ошибка сериализации итогов: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO lottery_draws (id, winning, tickets, pool, winners, drawn_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, toInt32(d.Winning), d.Tickets, d.Pool, winners, d.DrawnAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения розыгрыша: %w", err)
	}
	return nil
}

// LastDraw возвращает последний розыгрыш или nil.
func (r *Repository) LastDraw(ctx context.Context) (*Draw, error) {
	var d Draw
	var winning []int32
	var winners []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, winning, tickets, pool, winners, drawn_at
		FROM lottery_draws ORDER BY drawn_at DESC LIMIT 1
	`).Scan(&d.ID, &winning, &d.Tickets, &d.Pool, &winners, &d.DrawnAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения розыгрыша: %w", err)
	}
	d.Winning = fromInt32(winning)
	if err := json.Unmarshal(winners, &d.Winners); err != nil {
		return nil, fmt.Errorf("повреждены итоги розыгрыша %s: %w", d.ID, err)
	}
	return &d, nil
}

func toInt32(n Numbers) []int32 {
	out := make([]int32, len(n))
	for i, v := range n {
		out[i] = int32(v)
	}
	return out
}

func fromInt32(n []int32) Numbers {
	out := make(Numbers, len(n))
	for i, v := range n {
		out[i] = int(v)
	}
	return out
}
