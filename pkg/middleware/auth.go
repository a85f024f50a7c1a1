package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/sessions"
	"github.com/tokenworks/auth-service/internal/tokens"
)

// Context keys set by AuthRequired for downstream handlers.
const (
	ContextClaims   = "claims"
	ContextRawToken = "rawToken"
)

// TokenValidator is the minimal interface the middleware depends on.
type TokenValidator interface {
	Validate(ctx context.Context, raw string, details *sessions.SessionDetails) (*sessions.TokenClaims, error)
}

// AuthRequired validates the access token attached to the request, taken
// from the Authorization bearer header or, failing that, from the named
// cookie. Validated claims and the raw token are stored on the context.
func AuthRequired(v TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c, cookieName)
		if raw == "" {
			e := apperrors.InvalidAccessToken("no token attached to request")
			c.AbortWithStatusJSON(e.Status, gin.H{"error": e})
			return
		}

		claims, err := v.Validate(c.Request.Context(), raw, nil)
		if err != nil {
			var e *apperrors.Error
			if errors.Is(err, tokens.ErrTokenExpired) {
				e = apperrors.TokenExpired()
			} else {
				e = apperrors.InvalidAccessToken(err.Error())
			}
			c.AbortWithStatusJSON(e.Status, gin.H{"error": e})
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextRawToken, raw)
		c.Next()
	}
}

// TokenFromRequest extracts the raw token from the bearer header or cookie;
// empty when neither is present.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

// Claims returns the validated token claims set by AuthRequired.
func Claims(c *gin.Context) *sessions.TokenClaims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*sessions.TokenClaims); ok {
			return claims
		}
	}
	return nil
}
