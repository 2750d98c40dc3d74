// Package lottery — еженедельная лотерея: билеты из 6 чисел от 1 до 100,
// розыгрыш с выплатой по близости к выигрышной комбинации.
package lottery

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Параметры билета
const (
	NumbersPerTicket = 6
	NumberRange      = 100
)

// Numbers — числа билета, всегда отсортированы по возрастанию.
type Numbers []int

// String форматирует числа как "3, 17, 42, 58, 71, 99".
func (n Numbers) String() string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// Ticket — строка билетов пользователя. Одинаковые комбинации копятся в Quantity.
type Ticket struct {
	UserID   int64   `db:"user_id" json:"-"`
	Numbers  Numbers `db:"numbers" json:"numbers"`
	Quantity int64   `db:"quantity" json:"quantity"`
}

// Winner — итог розыгрыша для одного держателя билетов.
type Winner struct {
	UserID  int64    `json:"user_id"`
	Tickets []Ticket `json:"tickets"`
	Score   float64  `json:"score"` // Σ близость × количество
	Payout  int64    `json:"payout"`
}

// Draw — проведённый розыгрыш.
type Draw struct {
	ID      uuid.UUID
	Winning Numbers
	Tickets int64 // Сколько билетов участвовало
	Pool    int64 // Призовой фонд в центило
	Winners []Winner
	DrawnAt time.Time
}

// Status — текущее состояние лотереи для !лотерея статус и HTTP API.
type Status struct {
	Tickets     int64      `json:"tickets"`
	Holders     int        `json:"holders"`
	Pool        int64      `json:"pool"`
	LastDraw    *time.Time `json:"last_draw,omitempty"`
	NextDraw    *time.Time `json:"next_draw,omitempty"`
	LastNumbers Numbers    `json:"last_numbers,omitempty"`
}

// Store хранит билеты и историю розыгрышей.
type Store interface {
	AddTicket(ctx context.Context, userID int64, numbers Numbers, quantity int64) error
	UserTickets(ctx context.Context, userID int64) ([]Ticket, error)
	AllTickets(ctx context.Context) ([]Ticket, error)
	ClearTickets(ctx context.Context) error
	SaveDraw(ctx context.Context, d *Draw) error
	// LastDraw возвращает nil, если розыгрышей ещё не было.
	LastDraw(ctx context.Context) (*Draw, error)
}
