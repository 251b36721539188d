package session

import (
	"context"
	"sync"

	"github.com/ldotspots/zuco-motors/internal/models"
)

type memKey struct {
	client    string
	scope     Scope
	namespace string
}

// MemoryStore keeps sessions in process. It backs the local variant and
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[memKey]models.Session
	remember map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[memKey]models.Session),
		remember: make(map[string]bool),
	}
}

func (m *MemoryStore) Get(_ context.Context, client string, scope Scope, namespace string) (models.Session, bool, error) {
	if client == "" {
		return models.Session{}, false, ErrEmptyClient
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[memKey{client, scope, namespace}]
	return s, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, client string, scope Scope, namespace string, s models.Session) error {
	if client == "" {
		return ErrEmptyClient
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[memKey{client, scope, namespace}] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, client string, scope Scope, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memKey{client, scope, namespace})
	return nil
}

func (m *MemoryStore) SetRemember(_ context.Context, client string) error {
	if client == "" {
		return ErrEmptyClient
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remember[client] = true
	return nil
}

func (m *MemoryStore) Remembered(_ context.Context, client string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remember[client], nil
}

func (m *MemoryStore) ClearRemember(_ context.Context, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.remember, client)
	return nil
}
