package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers bad signatures and malformed input.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is reported separately so callers can present a
	// distinct message for expired-but-authentic tokens.
	ErrTokenExpired = errors.New("token expired")
)

// Codec signs and parses compact HS256 tokens. It is stateless and safe for
// concurrent use.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode signs the given claims with exp set to now + ttl.
func (c *Codec) Encode(claims map[string]interface{}, ttl time.Duration) (string, error) {
	return c.EncodeAt(claims, time.Now().Add(ttl).Unix())
}

// EncodeAt signs the given claims with an explicit expiry (unix seconds).
// Callers that derive state from exp (session keys) compute it up front and
// pass the same value here so the signed token and the derived state agree.
func (c *Codec) EncodeAt(claims map[string]interface{}, exp int64) (string, error) {
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["exp"] = exp
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return jt.SignedString(c.secret)
}

// Decode verifies signature and embedded expiry and returns the claims.
func (c *Codec) Decode(raw string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return map[string]interface{}(mc), nil
}
