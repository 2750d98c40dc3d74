package lottery

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore — билеты в памяти процесса (APP_STORAGE=memory и тесты).
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[int64]map[string]*Ticket
	draws   []*Draw
}

// NewMemoryStore создаёт пустое хранилище билетов.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[int64]map[string]*Ticket)}
}

func (m *MemoryStore) AddTicket(_ context.Context, userID int64, numbers Numbers, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.tickets[userID]
	if !ok {
		lines = make(map[string]*Ticket)
		m.tickets[userID] = lines
	}
	key := numbers.String()
	if t, ok := lines[key]; ok {
		t.Quantity += quantity
		return nil
	}
	lines[key] = &Ticket{UserID: userID, Numbers: append(Numbers(nil), numbers...), Quantity: quantity}
	return nil
}

func (m *MemoryStore) UserTickets(_ context.Context, userID int64) ([]Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(userID), nil
}

func (m *MemoryStore) AllTickets(context.Context) ([]Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ticket
	for userID := range m.tickets {
		out = append(out, m.collect(userID)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// collect возвращает копии билетов пользователя. Вызывать под m.mu.
func (m *MemoryStore) collect(userID int64) []Ticket {
	out := make([]Ticket, 0, len(m.tickets[userID]))
	for _, t := range m.tickets[userID] {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numbers.String() < out[j].Numbers.String() })
	return out
}

func (m *MemoryStore) ClearTickets(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = make(map[int64]map[string]*Ticket)
	return nil
}

func (m *MemoryStore) SaveDraw(_ context.Context, d *Draw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draws = append(m.draws, d)
	return nil
}

func (m *MemoryStore) LastDraw(context.Context) (*Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.draws) == 0 {
		return nil, nil
	}
	return m.draws[len(m.draws)-1], nil
}
