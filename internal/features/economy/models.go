// Package economy управляет виртуальной валютой сервера (лофаны, Ł).
// models.go описывает счета, инвентарь, рейтинг и журнал операций.
// Все суммы хранятся в центило (1 Ł = 100 cŁ), дробных денег нет.
package economy

import (
	"context"
	"time"
)

// Account — счёт пользователя.
type Account struct {
	UserID  int64 `db:"user_id"` // Discord user ID
	Balance int64 `db:"balance"` // Баланс в центило
	Tax     int64 `db:"tax"`     // Налоговый долг, всегда >= 0
}

// InventoryLine — строка инвентаря (ключ — пользователь и название предмета).
type InventoryLine struct {
	Name      string `db:"name"`
	Quantity  int64  `db:"quantity"`   // Строка с нулевым количеством удаляется
	UnitPrice int64  `db:"unit_price"` // Цена за штуку в центило
}

// RankEntry — строка рейтинга. Rank плотный: равные балансы делят место.
type RankEntry struct {
	UserID  int64
	Balance int64
	Rank    int
}

// Transaction — запись журнала движения денег.
type Transaction struct {
	ID          int64     `db:"id"`
	FromUserID  *int64    `db:"from_user_id"` // nil для системных начислений
	ToUserID    *int64    `db:"to_user_id"`   // nil для системных списаний
	Amount      int64     `db:"amount"`       // Всегда положительная
	Type        string    `db:"transaction_type"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Типы операций журнала
const (
	TxTypeTransfer   = "transfer"
	TxTypeIncome     = "income"
	TxTypeFee        = "fee"
	TxTypeBet        = "bet"
	TxTypeBetPayout  = "bet_payout"
	TxTypeSettle     = "settle"
	TxTypePrediction = "prediction"
	TxTypeLottery    = "lottery"
	TxTypePPL        = "ppl"
	TxTypeScratch    = "scratch"
	TxTypePig        = "pig"
	TxTypeAttendance = "attendance"
	TxTypeAdminGive  = "admin_give"
	TxTypeAdminTake  = "admin_take"
)

// PPLItem — строка инвентаря, в которой хранятся единицы индекса PPL.
const PPLItem = "PPL"

// Store — хранилище счетов, инвентаря и глобальных настроек.
// Каждая операция атомарна сама по себе; сочетания операций атомарности не дают.
type Store interface {
	// EnsureAccount создаёт счёт с нулевым балансом, если его ещё нет.
	EnsureAccount(ctx context.Context, userID int64) error
	// GetAccount возвращает счёт, создавая его при необходимости.
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	// AddBalance прибавляет delta (может быть отрицательной) без проверки остатка.
	AddBalance(ctx context.Context, userID, delta int64, txType, description string) error
	SetBalance(ctx context.Context, userID, value int64) error
	// Withdraw списывает amount, если хватает средств, иначе возвращает
	// common.ErrInsufficientBalance и ничего не меняет.
	Withdraw(ctx context.Context, userID, amount int64, txType, description string) error
	// Transfer атомарно переводит amount между счетами.
	Transfer(ctx context.Context, fromUserID, toUserID, amount int64, description string) error
	// AddTax меняет налоговый долг; результат не опускается ниже нуля.
	AddTax(ctx context.Context, userID, delta int64) error
	// ApplyIncome начисляет доход с удержанием min(round(gross*rate), tax).
	ApplyIncome(ctx context.Context, userID, gross int64, rate float64, txType, description string) (net, withheld int64, err error)
	// Settle применяет выплату расчёта: при нехватке баланс обнуляется,
	// а остаток долга добавляется к налогу. Возвращает перенесённый в налог остаток.
	Settle(ctx context.Context, userID, payout int64, description string) (shortfall int64, err error)

	GetInventory(ctx context.Context, userID int64) (map[string]InventoryLine, error)
	// AddInventory увеличивает количество; цена задаётся только при создании строки.
	AddInventory(ctx context.Context, userID int64, name string, quantity, price int64) error
	// SetInventory перезаписывает строку; quantity == 0 удаляет её.
	SetInventory(ctx context.Context, userID int64, name string, quantity, price int64) error
	TotalInventoryValue(ctx context.Context, userID int64) (int64, error)

	Ranking(ctx context.Context, limit int) ([]RankEntry, error)
	AccountIDs(ctx context.Context) ([]int64, error)
	Transactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)

	// GetValue читает глобальную настройку; ok == false, если её нет.
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)
	SetValue(ctx context.Context, key, value string) error

	Ping(ctx context.Context) error
}
