package session

import (
	"context"
	"sync"
)

// MemoryPersister keeps the session in process memory. It is mostly useful in tests.
type MemoryPersister struct {
	mu     sync.Mutex
	stored *Session
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil, nil
	}
	snap := m.stored.clone()
	return &snap, nil
}

func (m *MemoryPersister) Save(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := s.clone()
	m.stored = &snap
	return nil
}

func (m *MemoryPersister) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = nil
	return nil
}
