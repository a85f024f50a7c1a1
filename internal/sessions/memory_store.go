package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used for unit tests and for running the
// service without MongoDB. Semantics match MongoStore, including the jitter
// on expiry and the silent no-op activity update.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]*Session // keyed by sessionID + "\x00" + userID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]*Session)}
}

func key(sessionID, userID string) string {
	return sessionID + "\x00" + userID
}

func (m *MemoryStore) Add(ctx context.Context, sessionID, userID string, ttl time.Duration, details *SessionDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key(sessionID, userID)] = &Session{
		ID:      sessionID,
		UserID:  userID,
		Details: details,
		Expires: time.Now().UTC().Add(ttl + expiryJitter()),
	}
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, sessionID, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[key(sessionID, userID)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryStore) RemoveByID(ctx context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key(sessionID, userID))
	return nil
}

func (m *MemoryStore) RemoveAllForUser(ctx context.Context, userID string) error {
	return m.RemoveAllForUsers(ctx, []string{userID})
}

func (m *MemoryStore) RemoveAllForUsers(ctx context.Context, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range userIDs {
		ids[id] = true
	}
	for k, s := range m.store {
		if ids[s.UserID] {
			delete(m.store, k)
		}
	}
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, q FindQuery) ([]Session, int64, error) {
	m.mu.RLock()
	now := time.Now().UTC()
	matched := []Session{}
	for _, s := range m.store {
		if s.UserID == q.UserID && !s.Expires.Before(now) {
			matched = append(matched, *s)
		}
	}
	m.mu.RUnlock()

	field, order := q.sortField(), q.sortOrder()
	sort.SliceStable(matched, func(i, j int) bool {
		less := detailsLess(matched[i].Details, matched[j].Details, field)
		if order < 0 {
			return !less && detailsLess(matched[j].Details, matched[i].Details, field)
		}
		return less
	})

	total := int64(len(matched))
	if q.PageSize > 0 {
		start := 0
		if q.Page > 1 {
			start = (q.Page - 1) * q.PageSize
		}
		if start > len(matched) {
			start = len(matched)
		}
		end := start + q.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

// detailsLess orders by the named details field; missing details compare as
// zero values so detail-less rows sort as oldest.
func detailsLess(a, b *SessionDetails, field string) bool {
	switch field {
	case "userAgent":
		return detailString(a, field) < detailString(b, field)
	case "version":
		return detailString(a, field) < detailString(b, field)
	default:
		return detailTime(a, field).Before(detailTime(b, field))
	}
}

func detailTime(d *SessionDetails, field string) time.Time {
	if d == nil {
		return time.Time{}
	}
	var t *time.Time
	if field == "created" {
		t = d.Created
	} else {
		t = d.LastActivity
	}
	if t == nil {
		return time.Time{}
	}
	return *t
}

func detailString(d *SessionDetails, field string) string {
	if d == nil {
		return ""
	}
	if field == "userAgent" {
		return d.UserAgent
	}
	return d.Version
}

func (m *MemoryStore) UpdateActivity(ctx context.Context, userID, sessionID string, details *SessionDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[key(sessionID, userID)]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	if s.Details == nil {
		s.Details = &SessionDetails{}
	}
	s.Details.LastActivity = &now
	if details != nil {
		if details.UserAgent != "" {
			s.Details.UserAgent = details.UserAgent
		}
		if details.Version != "" {
			s.Details.Version = details.Version
		}
	}
	return nil
}
