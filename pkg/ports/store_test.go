package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

// MockStore is a minimal in-memory SessionStore used to exercise the contract itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Session)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = session.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewMockStore())
}
