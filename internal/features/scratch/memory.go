package scratch

import (
	"context"
	"sync"
	"time"
)

// MemoryStore хранит игры в памяти процесса.
type MemoryStore struct {
	mu    sync.Mutex
	games []*Game
	stats map[int64]*Stats
}

// NewMemoryStore создаёт пустое хранилище игр.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: make(map[int64]*Stats)}
}

func (m *MemoryStore) SaveGame(_ context.Context, game *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := *game
	g.ID = int64(len(m.games) + 1)
	g.CreatedAt = time.Now()
	m.games = append(m.games, &g)
	return nil
}

func (m *MemoryStore) UpdateStats(_ context.Context, userID, wagered, won int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[userID]
	if !ok {
		s = &Stats{UserID: userID}
		m.stats[userID] = s
	}
	s.TotalPlays++
	s.TotalWagered += wagered
	s.TotalWon += won
	if won > s.BiggestWin {
		s.BiggestWin = won
	}
	if s.TotalWagered > 0 {
		s.ReturnRate = float64(s.TotalWon) / float64(s.TotalWagered) * 100
	}
	return nil
}

func (m *MemoryStore) GetStats(_ context.Context, userID int64) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[userID]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}
