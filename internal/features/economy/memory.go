// Package economy — memory.go реализует Store в памяти процесса.
// Используется в режиме APP_STORAGE=memory и в тестах.
package economy

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/discord-bot/internal/common"
)

// MemoryStore хранит счета и настройки в map под одним мьютексом.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[int64]*Account
	inventory map[int64]map[string]InventoryLine
	settings  map[string]string
	journal   []*Transaction
	nextTxID  int64
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[int64]*Account),
		inventory: make(map[int64]map[string]InventoryLine),
		settings:  make(map[string]string),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// account возвращает счёт, создавая его. Вызывать под m.mu.
func (m *MemoryStore) account(userID int64) *Account {
	a, ok := m.accounts[userID]
	if !ok {
		a = &Account{UserID: userID}
		m.accounts[userID] = a
	}
	return a
}

// record пишет движение баланса в журнал. Вызывать под m.mu.
func (m *MemoryStore) record(from, to *int64, amount int64, txType, description string) {
	if amount == 0 {
		return
	}
	m.nextTxID++
	m.journal = append(m.journal, &Transaction{
		ID:          m.nextTxID,
		FromUserID:  from,
		ToUserID:    to,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	})
}

func (m *MemoryStore) recordMovement(userID, delta int64, txType, description string) {
	id := userID
	if delta >= 0 {
		m.record(nil, &id, delta, txType, description)
	} else {
		m.record(&id, nil, -delta, txType, description)
	}
}

func (m *MemoryStore) EnsureAccount(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account(userID)
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, userID int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := *m.account(userID)
	return &a, nil
}

func (m *MemoryStore) AddBalance(_ context.Context, userID, delta int64, txType, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account(userID).Balance += delta
	m.recordMovement(userID, delta, txType, description)
	return nil
}

func (m *MemoryStore) SetBalance(_ context.Context, userID, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account(userID).Balance = value
	return nil
}

func (m *MemoryStore) Withdraw(_ context.Context, userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.account(userID)
	if a.Balance < amount {
		return common.ErrInsufficientBalance
	}
	a.Balance -= amount
	m.recordMovement(userID, -amount, txType, description)
	return nil
}

func (m *MemoryStore) Transfer(_ context.Context, fromUserID, toUserID, amount int64, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.account(fromUserID)
	to := m.account(toUserID)
	if from.Balance < amount {
		return common.ErrInsufficientBalance
	}
	from.Balance -= amount
	to.Balance += amount
	f, t := fromUserID, toUserID
	m.record(&f, &t, amount, TxTypeTransfer, description)
	return nil
}

func (m *MemoryStore) AddTax(_ context.Context, userID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.account(userID)
	a.Tax += delta
	if a.Tax < 0 {
		a.Tax = 0
	}
	return nil
}

func (m *MemoryStore) ApplyIncome(_ context.Context, userID, gross int64, rate float64, txType, description string) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.account(userID)
	withheld := Withholding(gross, rate, a.Tax)
	net := gross - withheld
	a.Balance += net
	a.Tax -= withheld
	m.recordMovement(userID, net, txType, description)
	return net, withheld, nil
}

func (m *MemoryStore) Settle(_ context.Context, userID, payout int64, description string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.account(userID)
	newBalance, shortfall := SettleOutcome(a.Balance, payout)
	m.recordMovement(userID, newBalance-a.Balance, TxTypeSettle, description)
	a.Balance = newBalance
	a.Tax += shortfall
	return shortfall, nil
}

func (m *MemoryStore) GetInventory(_ context.Context, userID int64) (map[string]InventoryLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]InventoryLine, len(m.inventory[userID]))
	for name, line := range m.inventory[userID] {
		out[name] = line
	}
	return out, nil
}

func (m *MemoryStore) AddInventory(_ context.Context, userID int64, name string, quantity, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items(userID)
	line, ok := items[name]
	if !ok {
		line = InventoryLine{Name: name, UnitPrice: price}
	}
	line.Quantity += quantity
	if line.Quantity <= 0 {
		delete(items, name)
		return nil
	}
	items[name] = line
	return nil
}

func (m *MemoryStore) SetInventory(_ context.Context, userID int64, name string, quantity, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items(userID)
	if quantity <= 0 {
		delete(items, name)
		return nil
	}
	items[name] = InventoryLine{Name: name, Quantity: quantity, UnitPrice: price}
	return nil
}

func (m *MemoryStore) items(userID int64) map[string]InventoryLine {
	items, ok := m.inventory[userID]
	if !ok {
		items = make(map[string]InventoryLine)
		m.inventory[userID] = items
	}
	return items
}

func (m *MemoryStore) TotalInventoryValue(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, line := range m.inventory[userID] {
		total += line.Quantity * line.UnitPrice
	}
	return total, nil
}

func (m *MemoryStore) Ranking(_ context.Context, limit int) ([]RankEntry, error) {
	m.mu.Lock()
	entries := make([]RankEntry, 0, len(m.accounts))
	for _, a := range m.accounts {
		entries = append(entries, RankEntry{UserID: a.UserID, Balance: a.Balance})
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].UserID < entries[j].UserID
	})
	DenseRank(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) AccountIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemoryStore) Transactions(_ context.Context, userID int64, limit int) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transaction
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		t := m.journal[i]
		if (t.FromUserID != nil && *t.FromUserID == userID) || (t.ToUserID != nil && *t.ToUserID == userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *MemoryStore) SetValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}
