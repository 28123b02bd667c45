package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"storefront/internal/model"
)

// Factory builds a store for a new browser session, seeded with an
// existing provider session when there is one.
type Factory func(seed *model.Session) *Store

// Manager holds the stores of the most recently seen browser sessions.
// Evicted stores are closed.
type Manager struct {
	mu      sync.Mutex
	stores  *lru.Cache[string, *Store]
	factory Factory
}

func NewManager(size int, factory Factory) (*Manager, error) {
	stores, err := lru.NewWithEvict[string, *Store](size, func(_ string, s *Store) {
		go s.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &Manager{
		stores:  stores,
		factory: factory,
	}, nil
}

func NewSessionID() string {
	return uuid.NewString()
}

// BearerKey maps an access token onto a registry key without keeping the
// token itself as the key.
func BearerKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "bearer:" + hex.EncodeToString(sum[:16])
}

func (m *Manager) getOrCreate(key string, seed *model.Session) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores.Get(key); ok {
		return s
	}
	s := m.factory(seed)
	m.stores.Add(key, s)
	return s
}

// Get returns the initialized store for key, creating it on first use.
func (m *Manager) Get(ctx context.Context, key string) *Store {
	s := m.getOrCreate(key, nil)
	s.Initialize(ctx)
	return s
}

// Adopt returns the store for key, seeding a new one with session.
func (m *Manager) Adopt(ctx context.Context, key string, session *model.Session) *Store {
	s := m.getOrCreate(key, session)
	s.Initialize(ctx)
	return s
}

// Peek returns the store for key without creating one.
func (m *Manager) Peek(key string) (*Store, bool) {
	return m.stores.Peek(key)
}

func (m *Manager) Remove(key string) {
	m.stores.Remove(key)
}

func (m *Manager) Len() int {
	return m.stores.Len()
}

// Close closes every store.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.stores.Keys() {
		if s, ok := m.stores.Peek(key); ok {
			s.Close()
		}
	}
	m.stores.Purge()
}
