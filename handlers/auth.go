package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/config"
	"github.com/tokenworks/auth-service/internal/models"
	"github.com/tokenworks/auth-service/internal/refreshtokens"
	"github.com/tokenworks/auth-service/internal/sessions"
	"github.com/tokenworks/auth-service/internal/tokens"
	"github.com/tokenworks/auth-service/internal/users"
	"github.com/tokenworks/auth-service/pkg/logger"
	"github.com/tokenworks/auth-service/pkg/metrics"
	"github.com/tokenworks/auth-service/pkg/middleware"
)

// UserService is the upstream account service contract: it verifies
// passwords and owns the user records.
type UserService interface {
	ValidatePassword(ctx context.Context, username, password string) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, query map[string]interface{}) ([]models.User, error)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg           *config.Config
	users         UserService
	mgr           *sessions.Manager
	sessionStore  sessions.Store
	refreshTokens refreshtokens.Store
}

func NewAuthHandler(cfg *config.Config, u UserService, mgr *sessions.Manager, sessionStore sessions.Store, rts refreshtokens.Store) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: u, mgr: mgr, sessionStore: sessionStore, refreshTokens: rts}
}

// Register wires routes under /auth. Several endpoints are reachable under
// deprecated aliases kept for older callers; the table maps every external
// name onto one handler instead of branching inside handlers.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	authed := middleware.AuthRequired(h.mgr, h.cfg.Cookie.Name)

	routes := []struct {
		method  string
		paths   []string
		authed  bool
		handler gin.HandlerFunc
	}{
		{http.MethodPost, []string{"/cookie", "/login/web"}, false, h.CookieLogin},
		{http.MethodPost, []string{"/token", "/login/app"}, false, h.TokenLogin},
		{http.MethodGet, []string{"/token-to-cookie"}, true, h.ConvertTokenToCookie},
		{http.MethodPost, []string{"/refresh"}, false, h.Refresh},
		{http.MethodPost, []string{"/logout"}, true, h.Logout},
		{http.MethodGet, []string{"/logout"}, true, h.Logout},
		{http.MethodPost, []string{"/decode-token", "/decode"}, false, h.DecodeToken},
		{http.MethodPost, []string{"/generate-token/:variant"}, false, h.GenerateToken},
		{http.MethodGet, []string{"/sessions"}, true, h.ActiveSessions},
		{http.MethodPost, []string{"/logout-users", "/logout-users-by-id"}, false, h.LogoutUsersByID},
		{http.MethodPost, []string{"/session-details", "/get-session-details-by-user-id"}, false, h.SessionDetailsByUserID},
	}
	for _, r := range routes {
		for _, p := range r.paths {
			if r.authed {
				a.Handle(r.method, p, authed, r.handler)
			} else {
				a.Handle(r.method, p, r.handler)
			}
		}
	}
}

// LoginRequest carries credentials plus optional extra claims merged into
// the issued token (cross-system single-sign-on payloads).
type LoginRequest struct {
	Username          string                 `json:"username"`
	Password          string                 `json:"password"`
	AdditionalPayload map[string]interface{} `json:"additionalPayload,omitempty"`
}

// CookieLogin authenticates credentials and delivers the token via Set-Cookie.
func (h *AuthHandler) CookieLogin(c *gin.Context) {
	h.handleLogin(c, "cookie", h.respondWithCookie)
}

// TokenLogin authenticates credentials and returns an access token plus a
// long-lived refresh token in the body.
func (h *AuthHandler) TokenLogin(c *gin.Context) {
	h.handleLogin(c, "token", h.respondWithToken)
}

type loginResponder func(c *gin.Context, user *models.User, extra map[string]interface{})

func (h *AuthHandler) handleLogin(c *gin.Context, mode string, respond loginResponder) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.InvalidUsernameFormat(""))
		return
	}
	// Format checks run before anything touches the upstream service.
	if len(req.Username) < h.cfg.Login.UsernameMinLength {
		metrics.Logins.WithLabelValues(mode, "rejected").Inc()
		writeError(c, apperrors.InvalidUsernameFormat(req.Username))
		return
	}
	if len(req.Password) < h.cfg.Login.PasswordMinLength {
		metrics.Logins.WithLabelValues(mode, "rejected").Inc()
		writeError(c, apperrors.InvalidPasswordFormat())
		return
	}
	if err := h.validateExtraClaims(req.AdditionalPayload); err != nil {
		metrics.Logins.WithLabelValues(mode, "rejected").Inc()
		writeError(c, err)
		return
	}

	id, err := h.users.ValidatePassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.Debugf("user service failed validating username/password: %v", err)
		metrics.Logins.WithLabelValues(mode, "rejected").Inc()
		writeError(c, err)
		return
	}

	user, err := h.loginUser(c.Request.Context(), id)
	if err != nil {
		metrics.Logins.WithLabelValues(mode, "rejected").Inc()
		writeError(c, err)
		return
	}

	logger.Debugf("successfully authenticated user %s", user.ID)
	metrics.Logins.WithLabelValues(mode, "ok").Inc()
	respond(c, user, req.AdditionalPayload)
}

// loginUser fetches the fresh user record for a validated id and applies the
// deactivated-account policy.
func (h *AuthHandler) loginUser(ctx context.Context, id string) (*models.User, error) {
	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.UserNotFound("User " + id + " does not exist")
	}
	if h.cfg.Login.RejectDeactivatedUsers && user.Deactivated {
		return nil, apperrors.UserDeactivated(user.ID)
	}
	return user, nil
}

func (h *AuthHandler) respondWithCookie(c *gin.Context, user *models.User, extra map[string]interface{}) {
	token, err := h.mgr.Issue(c.Request.Context(), user.ID, h.cfg.Cookie.Age, extra, sessionDetailsFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Set-Cookie", h.bakeCookie(token, h.cfg.Cookie.Age))
	c.JSON(http.StatusOK, users.Project(user, h.cfg.Login.UserAttrsWhitelist))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User, extra map[string]interface{}) {
	access, err := h.mgr.Issue(c.Request.Context(), user.ID, h.cfg.JWT.AccessTokenTTL, extra, sessionDetailsFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	rt, err := h.refreshTokens.Create(c.Request.Context(), user.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed saving refresh token: %v", err)
		writeError(c, apperrors.UnexpectedError("Failed saving refresh token"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":                   access,
		"refreshToken":                  rt.Token,
		h.cfg.Login.UserDataResponseKey: users.Project(user, h.cfg.Login.UserAttrsWhitelist),
	})
}

// GenerateToken issues a token for a user matched by query, bypassing
// password validation. Service-to-service only; used for federated and
// external logins, which ride their SSO payloads in on additionalPayload.
// The :variant suffix selects cookie or token delivery.
func (h *AuthHandler) GenerateToken(c *gin.Context) {
	variant := c.Param("variant")
	if variant != "cookie" && variant != "token" {
		writeError(c, apperrors.UnexpectedError("unknown token variant "+variant))
		return
	}

	// The body is the user query with additionalPayload as a sibling key;
	// the payload is lifted out so it never leaks into the user lookup.
	var query map[string]interface{}
	if err := c.ShouldBindJSON(&query); err != nil {
		writeError(c, apperrors.UserNotFound("empty user query"))
		return
	}

	var extra map[string]interface{}
	if raw, ok := query["additionalPayload"]; ok {
		extra, ok = raw.(map[string]interface{})
		if !ok {
			writeError(c, apperrors.InvalidAdditionalPayload("additional payload must be an object"))
			return
		}
		delete(query, "additionalPayload")
	}
	if err := h.validateExtraClaims(extra); err != nil {
		writeError(c, err)
		return
	}

	if len(query) == 0 {
		writeError(c, apperrors.UserNotFound("empty user query"))
		return
	}

	matches, err := h.users.GetUsers(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(matches) == 0 {
		writeError(c, apperrors.UserNotFound(fmt.Sprintf("Cannot create token - no user matches %v", query)))
		return
	}
	if len(matches) > 1 {
		writeError(c, apperrors.UnexpectedError(fmt.Sprintf("Cannot create token - more than one user matches %v", query)))
		return
	}

	user := &matches[0]
	if h.cfg.Login.RejectDeactivatedUsers && user.Deactivated {
		writeError(c, apperrors.UserDeactivated(user.ID))
		return
	}

	if variant == "cookie" {
		h.respondWithCookie(c, user, extra)
	} else {
		h.respondWithToken(c, user, extra)
	}
}

// ConvertTokenToCookie rebakes a validated bearer token into a cookie so
// app sessions can hand over to a browser.
func (h *AuthHandler) ConvertTokenToCookie(c *gin.Context) {
	claims := middleware.Claims(c)
	raw := c.GetString(middleware.ContextRawToken)

	user, err := h.users.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	if user == nil {
		writeError(c, apperrors.InvalidAccessToken("User with id "+claims.UserID+" does not exist"))
		return
	}

	c.Header("Set-Cookie", h.bakeCookie(raw, h.cfg.Cookie.Age))
	c.JSON(http.StatusOK, users.Project(user, h.cfg.Login.UserAttrsWhitelist))
}

// validateExtraClaims rejects payloads that would collide with reserved
// claims or overflow what a browser cookie can carry.
func (h *AuthHandler) validateExtraClaims(extra map[string]interface{}) error {
	if len(extra) == 0 {
		return nil
	}
	for _, reserved := range []string{"exp", "salt"} {
		if _, ok := extra[reserved]; ok {
			return apperrors.InvalidAdditionalPayload("additional payload must not contain " + reserved)
		}
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return apperrors.InvalidAdditionalPayload("additional payload is not serializable")
	}
	if len(b) > h.cfg.JWT.AdditionalPayloadSize {
		return apperrors.InvalidAdditionalPayload(fmt.Sprintf("additional payload size %d exceeds maximum %d", len(b), h.cfg.JWT.AdditionalPayloadSize))
	}
	return nil
}

// sessionDetailsFromRequest captures the device metadata stored with a new
// session.
func sessionDetailsFromRequest(c *gin.Context) *sessions.SessionDetails {
	now := time.Now().UTC()
	return &sessions.SessionDetails{
		Created:      &now,
		LastActivity: &now,
		UserAgent:    c.GetHeader("User-Agent"),
		Version:      c.GetHeader("X-App-Version"),
	}
}

// writeError maps any error onto the service error shape. 5xx-class
// failures are logged server-side and returned without detail.
func writeError(c *gin.Context, err error) {
	var e *apperrors.Error
	if !errors.As(err, &e) {
		switch {
		case errors.Is(err, tokens.ErrTokenExpired):
			e = apperrors.TokenExpired()
		case errors.Is(err, tokens.ErrInvalidToken):
			e = apperrors.InvalidAccessToken(err.Error())
		case errors.Is(err, refreshtokens.ErrNotFound):
			e = apperrors.RefreshTokenNotFound()
		default:
			e = apperrors.UnexpectedError("")
		}
	}
	if e.Status >= 500 {
		logger.Warnf("request failed (%d %s): %v", e.Code, e.Title, err)
	}
	c.JSON(e.Status, gin.H{"error": e})
}
