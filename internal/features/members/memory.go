package members

import (
	"context"
	"strings"
	"sync"
	"time"

	"serotonyl.ru/discord-bot/internal/common"
)

// MemoryStore хранит участников в памяти (режим memory и тесты).
type MemoryStore struct {
	mu      sync.RWMutex
	members map[int64]*Member
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[int64]*Member)}
}

func (s *MemoryStore) Upsert(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.members[m.UserID]; ok {
		existing.Username = m.Username
		existing.DisplayName = m.DisplayName
		existing.UpdatedAt = now
		return nil
	}
	s.nextID++
	s.members[m.UserID] = &Member{
		ID:          s.nextID,
		UserID:      m.UserID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		JoinedAt:    now,
		UpdatedAt:   now,
	}
	return nil
}

func (s *MemoryStore) GetByUserID(_ context.Context, userID int64) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var byNick *Member
	for _, m := range s.members {
		if strings.EqualFold(m.Username, username) {
			cp := *m
			return &cp, nil
		}
		if byNick == nil && m.DisplayName != "" && strings.EqualFold(m.DisplayName, username) {
			byNick = m
		}
	}
	if byNick == nil {
		return nil, common.ErrUserNotFound
	}
	cp := *byNick
	return &cp, nil
}

func (s *MemoryStore) Exists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[userID]
	return ok, nil
}
