package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/pkg/logger"
	"github.com/tokenworks/auth-service/pkg/metrics"
)

// RefreshRequest names the refresh token to exchange for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated: it stays usable until its own expiry.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		metrics.RefreshExchanges.WithLabelValues("rejected").Inc()
		writeError(c, apperrors.MissingRefreshToken())
		return
	}

	// Fetch including explicitly-expired rows; both expiry signals are
	// validated here so the caller gets "expired" rather than "not found"
	// for a token that exists but was revoked.
	rt, err := h.refreshTokens.Get(c.Request.Context(), req.RefreshToken, true)
	if err != nil {
		metrics.RefreshExchanges.WithLabelValues("error").Inc()
		writeError(c, err)
		return
	}
	if rt == nil {
		metrics.RefreshExchanges.WithLabelValues("rejected").Inc()
		writeError(c, apperrors.RefreshTokenNotFound())
		return
	}
	if rt.Expired {
		metrics.RefreshExchanges.WithLabelValues("rejected").Inc()
		writeError(c, apperrors.RefreshTokenExpired(rt.Token, true))
		return
	}
	if rt.Expires.Before(time.Now()) {
		metrics.RefreshExchanges.WithLabelValues("rejected").Inc()
		writeError(c, apperrors.RefreshTokenExpired(rt.Token, false))
		return
	}

	// The old access token, when presented, has its session retired since a
	// new one replaces it. Failures here never fail the refresh.
	if auth := c.GetHeader("Authorization"); auth != "" {
		raw := strings.TrimPrefix(auth, "Bearer ")
		if claims, err := h.mgr.Validate(c.Request.Context(), raw, nil); err != nil {
			logger.Errorf("unable to decode previous token during refresh: %v", err)
		} else if err := h.mgr.RevokeOne(c.Request.Context(), claims.Exp, rt.UserID, claims.Salt); err != nil {
			logger.Errorf("unable to remove old session during refresh: %v", err)
		}
	}

	user, err := h.users.GetUser(c.Request.Context(), rt.UserID)
	if err != nil {
		metrics.RefreshExchanges.WithLabelValues("error").Inc()
		writeError(c, err)
		return
	}
	if user == nil {
		metrics.RefreshExchanges.WithLabelValues("rejected").Inc()
		writeError(c, apperrors.UserNotFound("User "+rt.UserID+" does not exist"))
		return
	}

	access, err := h.mgr.Issue(c.Request.Context(), user.ID, h.cfg.JWT.AccessTokenTTL, nil, sessionDetailsFromRequest(c))
	if err != nil {
		metrics.RefreshExchanges.WithLabelValues("error").Inc()
		writeError(c, err)
		return
	}

	logger.Debugf("access token created from refresh token for user %s", user.ID)
	metrics.RefreshExchanges.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}
