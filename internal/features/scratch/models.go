// Package scratch реализует моментальную лотерею: пять скрытых множителей,
// игрок выбирает один реакцией.
// models.go описывает карточку, записи игр и статистику игрока.
package scratch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CardSize — сколько полей на карточке.
const CardSize = 5

// Options — реакции для выбора поля.
var Options = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

// Prizes — эмодзи полей по номеру множителя k (множитель (k+1)²/11).
var Prizes = []string{"🥉", "🥈", "🥇", "💎", "👑"}

// Card — перемешанные номера множителей 0..4.
type Card [CardSize]int

// Multiplier возвращает множитель поля: (k+1)²/11.
func Multiplier(k int) decimal.Decimal {
	return decimal.NewFromInt(int64((k + 1) * (k + 1))).Div(decimal.NewFromInt(11))
}

// Result — итог одной игры.
type Result struct {
	Price  int64
	Card   Card
	Choice int // Индекс выбранного поля, -1 при таймауте
	Win    int64
}

// Game — запись одной игры в БД.
type Game struct {
	ID           int64           `db:"id"`
	UserID       int64           `db:"user_id"`
	GameType     string          `db:"game_type"`
	BetAmount    int64           `db:"bet_amount"`
	ResultAmount int64           `db:"result_amount"`
	GameData     json.RawMessage `db:"game_data"`
	CreatedAt    time.Time       `db:"created_at"`
}

// GameTypeScratch — тип игры в таблице games.
const GameTypeScratch = "scratch"

// Stats — статистика моментальной лотереи игрока.
type Stats struct {
	UserID       int64   `db:"user_id"`
	TotalPlays   int     `db:"total_plays"`
	TotalWagered int64   `db:"total_wagered"`
	TotalWon     int64   `db:"total_won"`
	BiggestWin   int64   `db:"biggest_win"`
	ReturnRate   float64 `db:"return_rate"` // Выиграно / поставлено, в процентах
}

// Store хранит игры и статистику.
type Store interface {
	SaveGame(ctx context.Context, game *Game) error
	UpdateStats(ctx context.Context, userID, wagered, won int64) error
	// GetStats возвращает nil, если игрок ещё не играл.
	GetStats(ctx context.Context, userID int64) (*Stats, error)
}

// gameData сериализует карточку для колонки game_data.
func gameData(r *Result) json.RawMessage {
	data := map[string]interface{}{
		"card":   r.Card,
		"choice": r.Choice,
	}
	bytes, _ := json.Marshal(data)
	return bytes
}
