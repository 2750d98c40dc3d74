package pig

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore хранит рекорды в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]*Record
}

// NewMemoryStore создаёт пустое хранилище рекордов.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]*Record)}
}

func (m *MemoryStore) Ensure(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[userID]; !ok {
		m.records[userID] = &Record{UserID: userID, UpdatedAt: time.Now()}
	}
	return nil
}

func (m *MemoryStore) UpdateBest(_ context.Context, userID, score int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok || rec.Score >= score {
		return false, nil
	}
	rec.Score = score
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

func (m *MemoryStore) Top(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
