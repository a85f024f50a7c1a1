package sessions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, s *MemoryStore, id, userID string, created time.Time) {
	t.Helper()
	c := created
	err := s.Add(context.Background(), id, userID, time.Hour, &SessionDetails{
		Created:      &c,
		LastActivity: &c,
		UserAgent:    "agent-" + id,
	})
	require.NoError(t, err)
}

func TestMemoryStoreAddGetRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "s1", "u1", time.Hour, nil))

	got, err := s.GetByID(ctx, "s1", "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	// same session id under a different user does not match
	got, err = s.GetByID(ctx, "s1", "u2")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.RemoveByID(ctx, "s1", "u1"))
	got, err = s.GetByID(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// removing an already removed session is not an error
	require.NoError(t, s.RemoveByID(ctx, "s1", "u1"))
}

func TestMemoryStoreFindPagination(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		seedSession(t, s, fmt.Sprintf("s%d", i), "u1", base.Add(time.Duration(i)*time.Minute))
	}
	seedSession(t, s, "other", "u2", base)

	// first page, newest first by default
	rows, total, err := s.Find(context.Background(), FindQuery{UserID: "u1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "s3", rows[0].ID)
	assert.Equal(t, "s2", rows[1].ID)

	// second page continues without overlap
	rows, total, err = s.Find(context.Background(), FindQuery{UserID: "u1", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].ID)
	assert.Equal(t, "s0", rows[1].ID)

	// a page past the end is empty, not an error
	rows, total, err = s.Find(context.Background(), FindQuery{UserID: "u1", Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, rows)
}

func TestMemoryStoreFindAscending(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC().Add(-time.Hour)
	seedSession(t, s, "old", "u1", base)
	seedSession(t, s, "new", "u1", base.Add(time.Minute))

	rows, _, err := s.Find(context.Background(), FindQuery{UserID: "u1", Sort: "created", SortOrder: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "old", rows[0].ID)
	assert.Equal(t, "new", rows[1].ID)
}

func TestMemoryStoreFindDetaillessRowsSortOldest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "bare", "u1", time.Hour, nil))
	seedSession(t, s, "tracked", "u1", time.Now().UTC())

	rows, _, err := s.Find(ctx, FindQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "tracked", rows[0].ID)
	assert.Equal(t, "bare", rows[1].ID)
	assert.Nil(t, rows[1].Details)
}

func TestMemoryStoreFindExcludesExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	// far enough in the past that jitter cannot push it back over now
	require.NoError(t, s.Add(ctx, "gone", "u1", -10*expiryJitterMax, nil))
	require.NoError(t, s.Add(ctx, "live", "u1", time.Hour, nil))

	rows, total, err := s.Find(ctx, FindQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "live", rows[0].ID)
}

func TestMemoryStoreUpdateActivity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "s1", "u1", time.Hour, nil))

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, s.UpdateActivity(ctx, "u1", "s1", &SessionDetails{UserAgent: "ua", Version: "1.2"}))

	got, err := s.GetByID(ctx, "s1", "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Details)
	assert.Equal(t, "ua", got.Details.UserAgent)
	assert.Equal(t, "1.2", got.Details.Version)
	require.NotNil(t, got.Details.LastActivity)
	assert.True(t, got.Details.LastActivity.After(before))
}

func TestMemoryStoreUpdateActivityMissingRow(t *testing.T) {
	s := NewMemoryStore()
	// session revoked mid-flight: the late activity update is a silent no-op
	assert.NoError(t, s.UpdateActivity(context.Background(), "u1", "nope", nil))
}
