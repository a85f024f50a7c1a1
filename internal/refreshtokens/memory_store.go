package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used for unit tests and for running
// without MongoDB.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]*RefreshToken // keyed by opaque token value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]*RefreshToken)}
}

func (m *MemoryStore) Create(ctx context.Context, userID string, ttl time.Duration) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt := &RefreshToken{
		ID:      uuid.NewString(),
		Token:   uuid.NewString(),
		UserID:  userID,
		Expired: false,
		Expires: time.Now().UTC().Add(ttl),
	}
	m.store[rt.Token] = rt
	return rt, nil
}

func (m *MemoryStore) Get(ctx context.Context, token string, allowExpired bool) (*RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.store[token]
	if !ok || (!allowExpired && rt.Expired) {
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

func (m *MemoryStore) Expire(ctx context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.store[token]
	if !ok {
		return nil, ErrNotFound
	}
	rt.Expired = true
	cp := *rt
	return &cp, nil
}
