package sessions

import (
	"context"
	"time"
)

// FindQuery selects and pages a user's sessions. Sort names a field inside
// the session details; rows lacking details still participate and sort as
// oldest.
type FindQuery struct {
	UserID    string
	Sort      string // details field, defaults to "lastActivity"
	SortOrder int    // 1 ascending, -1 descending (default)
	Page      int    // 1-based
	PageSize  int
}

func (q FindQuery) sortField() string {
	if q.Sort == "" {
		return "lastActivity"
	}
	return q.Sort
}

func (q FindQuery) sortOrder() int {
	if q.SortOrder == 0 {
		return -1
	}
	return q.SortOrder
}

// Store is the persisted session registry. Implementations must make the
// single-row operations atomic; there is no application-level locking above
// this interface.
type Store interface {
	// Add inserts a row expiring at now + ttl + jitter.
	Add(ctx context.Context, sessionID, userID string, ttl time.Duration, details *SessionDetails) error
	// GetByID returns the session or nil when no row matches.
	GetByID(ctx context.Context, sessionID, userID string) (*Session, error)
	RemoveByID(ctx context.Context, sessionID, userID string) error
	RemoveAllForUser(ctx context.Context, userID string) error
	RemoveAllForUsers(ctx context.Context, userIDs []string) error
	// Find returns one page of unexpired sessions plus the total count.
	Find(ctx context.Context, q FindQuery) ([]Session, int64, error)
	// UpdateActivity merges details into the row and stamps lastActivity.
	// A row deleted mid-flight is not an error.
	UpdateActivity(ctx context.Context, userID, sessionID string, details *SessionDetails) error
}
