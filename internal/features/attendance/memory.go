package attendance

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore хранит посещаемость в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]Attendance
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]Attendance)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Attendance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.records[userID]
	return a, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, a Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[a.UserID] = a
	return nil
}

func (m *MemoryStore) Top(_ context.Context, limit int) ([]Attendance, error) {
	m.mu.Lock()
	out := make([]Attendance, 0, len(m.records))
	for _, a := range m.records {
		out = append(out, a)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Streak != out[j].Streak {
			return out[i].Streak > out[j].Streak
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
