// Package admin — memory.go хранит сессии в памяти процесса.
package admin

import (
	"context"
	"sync"
	"time"
)

type attempt struct {
	userID  int64
	success bool
	at      time.Time
}

// MemoryStore реализует Store в памяти.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	attempts []attempt
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MemoryStore) ActiveSession(_ context.Context, userID int64, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Session
	for _, s := range m.sessions {
		if s.UserID != userID || !s.ExpiresAt.After(now) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			s := s
			best = &s
		}
	}
	return best, nil
}

func (m *MemoryStore) DeleteSessions(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for token, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	kept := m.attempts[:0]
	for _, a := range m.attempts {
		if !a.at.Before(now.Add(-AttemptWindow)) {
			kept = append(kept, a)
		}
	}
	m.attempts = kept
	return removed, nil
}

func (m *MemoryStore) LogAttempt(_ context.Context, userID int64, success bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt{userID: userID, success: success, at: at})
	return nil
}

func (m *MemoryStore) FailedAttempts(_ context.Context, userID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.attempts {
		if a.userID == userID && !a.success && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}
