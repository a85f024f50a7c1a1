package sessions

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tokenworks/auth-service/internal/tokens"
	"github.com/tokenworks/auth-service/pkg/logger"
	"github.com/tokenworks/auth-service/pkg/metrics"
)

// ErrSessionNotFound means the token verified but no backing session row
// exists: the session was revoked (or never created). It unwraps to
// tokens.ErrInvalidToken because callers treat both the same way.
var ErrSessionNotFound = fmt.Errorf("%w: no session for token", tokens.ErrInvalidToken)

// sessionCutover is the instant the session registry went live. Tokens
// whose expiry falls at or before cutover + the access-token TTL configured
// at that time were minted before any session row could exist for them and
// are grandfathered in. One-time migration shim; remove once all such
// tokens have aged out.
var sessionCutover = time.Date(2018, time.May, 14, 15, 26, 34, 520*int(time.Millisecond), time.UTC)

// TokenClaims is the decoded, session-checked content of an access token.
type TokenClaims struct {
	UserID string
	Exp    int64
	Salt   string
	All    map[string]interface{}
}

// Manager issues revocable access tokens. A normally stateless signed token
// is made revocable by persisting one session row per issuance under a key
// derived from the token's own claims; validation recomputes the key and
// requires the row to still exist.
type Manager struct {
	codec        *tokens.Codec
	store        Store
	secret       []byte
	legacyCutoff int64
}

// NewManager creates a Manager signing with secret. accessTokenTTL is the
// configured default access-token lifetime; it only positions the legacy
// acceptance cutoff.
func NewManager(secret string, accessTokenTTL time.Duration, store Store) *Manager {
	return &Manager{
		codec:        tokens.NewCodec(secret),
		store:        store,
		secret:       []byte(secret),
		legacyCutoff: sessionCutover.Add(accessTokenTTL).Unix(),
	}
}

// sessionID derives the registry key from claims the token itself carries.
// Keyed with the signing secret so the id cannot be forged or guessed, yet
// the same derivation runs at issuance, validation and revocation time
// without persisting any correlation data.
func (m *Manager) sessionID(exp int64, userID, salt string) string {
	mac := hmac.New(sha512.New, m.secret)
	fmt.Fprintf(mac, "%d %s%s", exp, userID, salt)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue signs a token for userID and records its session. The session row is
// persisted before the token is signed and returned, so a token is never
// handed out without a row backing it.
func (m *Manager) Issue(ctx context.Context, userID string, ttl time.Duration, extraClaims map[string]interface{}, details *SessionDetails) (string, error) {
	exp := time.Now().Add(ttl).Unix()

	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	if err := m.store.Add(ctx, m.sessionID(exp, userID, salt), userID, ttl, details); err != nil {
		return "", err
	}

	// Reserved claims are set after the merge so extra claims can never
	// displace the subject the session row was derived from.
	claims := map[string]interface{}{}
	for k, v := range extraClaims {
		claims[k] = v
	}
	claims["id"] = userID
	claims["salt"] = salt
	return m.codec.EncodeAt(claims, exp)
}

// Validate checks signature and expiry, then requires the backing session
// row to still exist. On success the session's last activity is touched in
// the background; the request never waits on or fails from that update.
func (m *Manager) Validate(ctx context.Context, raw string, details *SessionDetails) (*TokenClaims, error) {
	all, err := m.codec.Decode(raw)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	claims := claimsFrom(all)

	sess, err := m.store.GetByID(ctx, m.sessionID(claims.Exp, claims.UserID, claims.Salt), claims.UserID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Tokens from before the session registry existed can never have a
		// row; accept them until they age out. Anything newer without a row
		// has been revoked.
		if claims.Exp > m.legacyCutoff {
			metrics.TokenValidations.WithLabelValues("revoked").Inc()
			return nil, ErrSessionNotFound
		}
		metrics.TokenValidations.WithLabelValues("legacy").Inc()
		return claims, nil
	}

	metrics.TokenValidations.WithLabelValues("ok").Inc()

	go m.touchActivity(sess.UserID, sess.ID, details)

	return claims, nil
}

// touchActivity runs detached from the request that triggered it; failures
// are logged and dropped.
func (m *Manager) touchActivity(userID, sessionID string, details *SessionDetails) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.UpdateActivity(ctx, userID, sessionID, details); err != nil {
		logger.Warnf("failed updating session activity for user %s: %v", userID, err)
	}
}

// RevokeOne removes the session derived from the given token claims.
func (m *Manager) RevokeOne(ctx context.Context, exp int64, userID, salt string) error {
	if err := m.store.RemoveByID(ctx, m.sessionID(exp, userID, salt), userID); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("one").Inc()
	return nil
}

// RevokeOneByID removes one session by its registry key, for self-service
// "log out that other device".
func (m *Manager) RevokeOneByID(ctx context.Context, sessionID, userID string) error {
	if err := m.store.RemoveByID(ctx, sessionID, userID); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("one").Inc()
	return nil
}

// RevokeAllForUser removes every session a user has.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := m.store.RemoveAllForUser(ctx, userID); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("user").Inc()
	return nil
}

// RevokeAllForUsers removes every session of every listed user, e.g. on
// administrative bulk logout.
func (m *Manager) RevokeAllForUsers(ctx context.Context, userIDs []string) error {
	if err := m.store.RemoveAllForUsers(ctx, userIDs); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("bulk").Inc()
	return nil
}

func newSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func claimsFrom(all map[string]interface{}) *TokenClaims {
	c := &TokenClaims{All: all}
	c.UserID, _ = all["id"].(string)
	c.Salt, _ = all["salt"].(string)
	switch v := all["exp"].(type) {
	case float64:
		c.Exp = int64(v)
	case int64:
		c.Exp = v
	}
	return c
}
