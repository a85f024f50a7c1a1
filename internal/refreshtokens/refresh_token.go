package refreshtokens

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Expire when no row matches the token.
var ErrNotFound = errors.New("refresh token not found")

// RefreshToken is a long-lived opaque credential exchangeable for new access
// tokens without re-authentication. Rows are never deleted; `expired` is an
// explicit revocation flag checked independently of the `expires` time. One
// token may be exchanged repeatedly until either signal trips.
type RefreshToken struct {
	ID      string    `bson:"id" json:"id"`
	Token   string    `bson:"token" json:"token"`
	UserID  string    `bson:"userId" json:"userId"`
	Expired bool      `bson:"expired" json:"expired"`
	Expires time.Time `bson:"expires" json:"expires"`
}

// Store persists refresh tokens, one per device/login.
type Store interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*RefreshToken, error)
	// Get returns nil when no row matches. With allowExpired false, rows
	// with the expired flag set are treated as missing; Refresh passes true
	// and validates both expiry signals itself.
	Get(ctx context.Context, token string, allowExpired bool) (*RefreshToken, error)
	// Expire sets the expired flag and returns the updated row, or
	// ErrNotFound.
	Expire(ctx context.Context, token string) (*RefreshToken, error)
}
