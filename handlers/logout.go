package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/pkg/middleware"
)

// LogoutRequest optionally names another session of the caller to revoke
// ("log out that other device").
type LogoutRequest struct {
	SessionID string `json:"sessionId"`
}

// Logout revokes sessions of the authenticated caller. Three mutually
// exclusive modes: ?logoutAll=true revokes every session, a sessionId in the
// body revokes that one, and by default the session behind the presented
// credential is revoked. Always succeeds, even when nothing matched.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.Claims(c)

	var req LogoutRequest
	_ = c.ShouldBindJSON(&req) // body is optional (GET logout has none)

	var err error
	switch {
	case c.Query("logoutAll") == "true":
		err = h.mgr.RevokeAllForUser(c.Request.Context(), claims.UserID)
	case req.SessionID != "":
		err = h.mgr.RevokeOneByID(c.Request.Context(), req.SessionID, claims.UserID)
	default:
		err = h.mgr.RevokeOne(c.Request.Context(), claims.Exp, claims.UserID, claims.Salt)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Set-Cookie", h.expiredCookie())
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutUsersByIDRequest lists users whose sessions are all revoked.
type LogoutUsersByIDRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
}

// LogoutUsersByID is the administrative bulk logout, e.g. on account
// deactivation. Service-to-service only.
func (h *AuthHandler) LogoutUsersByID(c *gin.Context) {
	var req LogoutUsersByIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.mgr.RevokeAllForUsers(c.Request.Context(), req.UserIDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
