package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenworks/auth-service/internal/tokens"
)

func TestIssueValidateRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	raw, err := m.Issue(ctx, "u1", time.Hour, map[string]interface{}{"custom": "v"}, nil)
	require.NoError(t, err)

	claims, err := m.Validate(ctx, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.NotEmpty(t, claims.Salt)
	assert.Equal(t, "v", claims.All["custom"])
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestIssueCreatesSessionRow(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	_, err := m.Issue(ctx, "u1", time.Hour, nil, &SessionDetails{UserAgent: "test-agent"})
	require.NoError(t, err)

	rows, total, err := store.Find(ctx, FindQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "test-agent", rows[0].Details.UserAgent)
	// expiry carries jitter on top of the ttl
	assert.True(t, rows[0].Expires.After(time.Now().Add(time.Hour-time.Minute)))
}

func TestIssueExtraClaimsCannotDisplaceReserved(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	raw, err := m.Issue(ctx, "u1", time.Hour, map[string]interface{}{"id": "evil", "salt": "forged"}, nil)
	require.NoError(t, err)

	claims, err := m.Validate(ctx, raw, nil)
	require.NoError(t, err, "session lookup must still find the real subject's row")
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.All["id"])
	assert.NotEqual(t, "forged", claims.Salt)
}

func TestValidateRejectsRevokedToken(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	raw, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)

	claims, err := m.Validate(ctx, raw, nil)
	require.NoError(t, err)

	require.NoError(t, m.RevokeOne(ctx, claims.Exp, claims.UserID, claims.Salt))

	_, err = m.Validate(ctx, raw, nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	// a revoked token is an invalid token as far as callers are concerned
	assert.True(t, errors.Is(err, tokens.ErrInvalidToken))
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	other := tokens.NewCodec("other-secret")
	raw, err := other.Encode(map[string]interface{}{"id": "u1", "salt": "s"}, time.Hour)
	require.NoError(t, err)

	_, err = m.Validate(ctx, raw, nil)
	assert.True(t, errors.Is(err, tokens.ErrInvalidToken))
}

func TestValidateLegacyTokenWithoutSession(t *testing.T) {
	store := NewMemoryStore()
	// a very long configured ttl pushes the legacy cutoff into the future,
	// the situation right after the session registry went live
	m := NewManager("test-secret", 100*365*24*time.Hour, store)
	ctx := context.Background()

	raw, err := tokens.NewCodec("test-secret").Encode(map[string]interface{}{"id": "u1"}, time.Hour)
	require.NoError(t, err)

	claims, err := m.Validate(ctx, raw, nil)
	require.NoError(t, err, "pre-registry token should be accepted without a session row")
	assert.Equal(t, "u1", claims.UserID)
}

func TestValidatePostCutoffTokenWithoutSession(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	// signed with the right secret but no session row was ever created
	raw, err := tokens.NewCodec("test-secret").Encode(map[string]interface{}{"id": "u1", "salt": "s"}, time.Hour)
	require.NoError(t, err)

	_, err = m.Validate(ctx, raw, nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestRevokeAllForUserLeavesOthersAlone(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	t1, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)
	t2, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)
	t3, err := m.Issue(ctx, "u2", time.Hour, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.RevokeAllForUser(ctx, "u1"))

	_, err = m.Validate(ctx, t1, nil)
	assert.Error(t, err)
	_, err = m.Validate(ctx, t2, nil)
	assert.Error(t, err)
	_, err = m.Validate(ctx, t3, nil)
	assert.NoError(t, err, "other users keep their sessions")
}

func TestRevokeAllForUsers(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	t1, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)
	t2, err := m.Issue(ctx, "u2", time.Hour, nil, nil)
	require.NoError(t, err)
	t3, err := m.Issue(ctx, "u3", time.Hour, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.RevokeAllForUsers(ctx, []string{"u1", "u2"}))

	_, err = m.Validate(ctx, t1, nil)
	assert.Error(t, err)
	_, err = m.Validate(ctx, t2, nil)
	assert.Error(t, err)
	_, err = m.Validate(ctx, t3, nil)
	assert.NoError(t, err)
}

func TestRevokeOneByID(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	raw, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)

	rows, _, err := store.Find(ctx, FindQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, m.RevokeOneByID(ctx, rows[0].ID, "u1"))

	_, err = m.Validate(ctx, raw, nil)
	assert.Error(t, err)
}

func TestSessionIDIsDeterministic(t *testing.T) {
	m := NewManager("test-secret", time.Hour, NewMemoryStore())

	a := m.sessionID(1700000000, "u1", "salt")
	b := m.sessionID(1700000000, "u1", "salt")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, m.sessionID(1700000001, "u1", "salt"))
	assert.NotEqual(t, a, m.sessionID(1700000000, "u2", "salt"))
	assert.NotEqual(t, a, m.sessionID(1700000000, "u1", "other"))

	// a different signing secret yields unrelated ids
	m2 := NewManager("other-secret", time.Hour, NewMemoryStore())
	assert.NotEqual(t, a, m2.sessionID(1700000000, "u1", "salt"))

	// hex encoded sha512
	assert.Len(t, a, 128)
}

func TestValidateTouchesActivity(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("test-secret", time.Hour, store)
	ctx := context.Background()

	raw, err := m.Issue(ctx, "u1", time.Hour, nil, nil)
	require.NoError(t, err)

	_, err = m.Validate(ctx, raw, &SessionDetails{UserAgent: "later-agent"})
	require.NoError(t, err)

	// activity update runs in the background
	assert.Eventually(t, func() bool {
		rows, _, err := store.Find(ctx, FindQuery{UserID: "u1"})
		if err != nil || len(rows) != 1 || rows[0].Details == nil {
			return false
		}
		return rows[0].Details.UserAgent == "later-agent" && rows[0].Details.LastActivity != nil
	}, 2*time.Second, 10*time.Millisecond)
}
