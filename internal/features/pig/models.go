// Package pig — игра «Свинья»: бросаем кубик и копим очки, единица обнуляет счёт.
package pig

import (
	"context"
	"time"
)

// Варианты ответа на каждом шаге
var Options = []string{"❌", "🎲"}

// Индексы вариантов
const (
	OptionStop = 0
	OptionRoll = 1
)

// Outcome — чем закончилась игра.
type Outcome int

const (
	OutcomeStopped Outcome = iota // Игрок остановился, счёт записан
	OutcomeBusted                 // Выпала единица, счёт 0
	OutcomeTimeout                // Игрок не ответил, взнос не возвращается
)

// Game — итог одной игры.
type Game struct {
	Rolls   []int
	Score   int64
	Outcome Outcome
	NewBest bool
}

// Record — лучший результат игрока.
type Record struct {
	UserID    int64     `db:"user_id"`
	Score     int64     `db:"score"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store хранит рекорды.
type Store interface {
	// Ensure создаёт запись с нулевым счётом, если её нет.
	Ensure(ctx context.Context, userID int64) error
	// UpdateBest записывает score, только если он больше сохранённого.
	UpdateBest(ctx context.Context, userID, score int64) (bool, error)
	// Get возвращает ok == false, если игрок не играл.
	Get(ctx context.Context, userID int64) (Record, bool, error)
	Top(ctx context.Context, limit int) ([]Record, error)
}
