package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/sessions"
	"github.com/tokenworks/auth-service/pkg/middleware"
)

// SessionDetailsItem is one row of a session listing. For sessions created
// before activity tracking existed every field except the id is null, so
// clients render a consistent "unknown device" entry instead of a gap.
type SessionDetailsItem struct {
	ID           string     `json:"id"`
	Created      *time.Time `json:"created"`
	LastActivity *time.Time `json:"lastActivity"`
	UserAgent    *string    `json:"userAgent"`
	Version      *string    `json:"version"`
}

// ActiveSessions lists the authenticated caller's sessions for self-service
// device management. Paginated; defaults to lastActivity descending.
func (h *AuthHandler) ActiveSessions(c *gin.Context) {
	claims := middleware.Claims(c)
	h.findSessions(c, sessions.FindQuery{
		UserID:    claims.UserID,
		Sort:      c.Query("sort"),
		SortOrder: intQuery(c, "sortOrder"),
		Page:      intQuery(c, "page"),
		PageSize:  intQuery(c, "pageSize"),
	})
}

// SessionDetailsByUserIDRequest selects and pages another user's sessions.
type SessionDetailsByUserIDRequest struct {
	UserID    string `json:"userId" binding:"required"`
	Sort      string `json:"sort"`
	SortOrder int    `json:"sortOrder"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

// SessionDetailsByUserID is the service-to-service variant of the session
// listing, keyed by an explicit user id.
func (h *AuthHandler) SessionDetailsByUserID(c *gin.Context) {
	var req SessionDetailsByUserIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.UserNotFound("no userId provided"))
		return
	}
	h.findSessions(c, sessions.FindQuery{
		UserID:    req.UserID,
		Sort:      req.Sort,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
}

func (h *AuthHandler) findSessions(c *gin.Context, q sessions.FindQuery) {
	rows, total, err := h.sessionStore.Find(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]SessionDetailsItem, 0, len(rows))
	for _, s := range rows {
		item := SessionDetailsItem{ID: s.ID}
		if s.Details != nil {
			item.Created = s.Details.Created
			item.LastActivity = s.Details.LastActivity
			if s.Details.UserAgent != "" {
				ua := s.Details.UserAgent
				item.UserAgent = &ua
			}
			if s.Details.Version != "" {
				v := s.Details.Version
				item.Version = &v
			}
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"totalCount": total, "sessionDetails": items})
}

func intQuery(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}
