package sessions

import (
	"math/rand"
	"time"
)

// Session is one row in the session registry. A row exists for every issued
// access token; deleting the row revokes the token even though its signature
// and expiry stay valid. The ID is derived from the token's own claims, so
// there is no foreign key back to the token.
type Session struct {
	ID      string          `bson:"id" json:"id"`
	UserID  string          `bson:"userId" json:"userId"`
	Details *SessionDetails `bson:"sessionDetails,omitempty" json:"sessionDetails,omitempty"`
	Expires time.Time       `bson:"expires" json:"expires"`
}

// SessionDetails carries per-device activity metadata. Sessions created
// before activity tracking existed have no details at all.
type SessionDetails struct {
	Created      *time.Time `bson:"created,omitempty" json:"created,omitempty"`
	LastActivity *time.Time `bson:"lastActivity,omitempty" json:"lastActivity,omitempty"`
	UserAgent    string     `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Version      string     `bson:"version,omitempty" json:"version,omitempty"`
}

// expiryJitterMax decorrelates session expiry so the TTL sweep never deletes
// a whole login cohort at once. The magnitude is not load-bearing.
const expiryJitterMax = 7 * time.Hour

func expiryJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(expiryJitterMax)))
}
