package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/users"
)

// DecodeTokenRequest carries the raw token presented on an authenticated
// call.
type DecodeTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// DecodeToken validates a token for the API boundary and returns the fresh
// user record rather than the snapshot embedded at issuance, so profile and
// permission changes take effect mid-session. Session activity is touched in
// the background as a side effect of validation.
func (h *AuthHandler) DecodeToken(c *gin.Context) {
	var req DecodeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.InvalidAccessToken("no token provided"))
		return
	}

	claims, err := h.mgr.Validate(c.Request.Context(), req.Token, sessionDetailsFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	if user == nil {
		writeError(c, apperrors.InvalidAccessToken("User with id "+claims.UserID+" does not exist"))
		return
	}

	c.JSON(http.StatusOK, users.Project(user, h.cfg.Login.UserAttrsWhitelist))
}
