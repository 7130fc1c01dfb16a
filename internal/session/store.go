// Package session keeps one chat.Session per visitor between requests.
package session

import (
	"context"
	"errors"
	"sync"

	"shop-insights/internal/chat"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Get(ctx context.Context, id string) (*chat.Session, error)
	Save(ctx context.Context, id string, s *chat.Session) error
	Reset(ctx context.Context, id string) error
}

// Load returns the stored session for id, or a freshly initialized one from
// newSession when none exists yet. The new session is saved before returning.
func Load(ctx context.Context, store Store, id string, newSession func() *chat.Session) (*chat.Session, error) {
	s, err := store.Get(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	s = newSession()
	if err := store.Save(ctx, id, s); err != nil {
		return nil, err
	}
	return s, nil
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*chat.Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*chat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, s *chat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
