package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/config"
	"github.com/tokenworks/auth-service/internal/models"
	"github.com/tokenworks/auth-service/internal/refreshtokens"
	"github.com/tokenworks/auth-service/internal/sessions"
)

// fakeUserService implements UserService against fixed fixtures.
type fakeUserService struct {
	users map[string]*models.User
	creds map[string][2]string // username -> password, user id

	validatePasswordCalls int
	getUserCalls          int
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{
		users: map[string]*models.User{
			"u1": {
				ID:        "u1",
				FirstName: "Joel",
				LastName:  "Smith",
				Email:     "joel@example.com",
				Roles:     []string{"user"},
				Profile:   map[string]interface{}{"lastName": "Smith"},
			},
		},
		creds: map[string][2]string{
			"joel": {"p4ssword", "u1"},
		},
	}
}

func (f *fakeUserService) ValidatePassword(ctx context.Context, username, password string) (string, error) {
	f.validatePasswordCalls++
	if cred, ok := f.creds[username]; ok && cred[0] == password {
		return cred[1], nil
	}
	return "", apperrors.AuthenticationFailed(http.StatusUnauthorized)
}

func (f *fakeUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.getUserCalls++
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserService) GetUsers(ctx context.Context, query map[string]interface{}) ([]models.User, error) {
	out := []models.User{}
	// strict matching like the real user service: a query field no user
	// record carries matches nothing
	for k := range query {
		if k != "id" && k != "email" {
			return out, nil
		}
	}
	for _, u := range f.users {
		if id, ok := query["id"].(string); ok && u.ID != id {
			continue
		}
		if email, ok := query["email"].(string); ok && u.Email != email {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

type env struct {
	cfg          *config.Config
	users        *fakeUserService
	sessionStore *sessions.MemoryStore
	refreshStore *refreshtokens.MemoryStore
	mgr          *sessions.Manager
	router       *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:                "test-secret",
			AccessTokenTTL:        time.Hour,
			RefreshTokenTTL:       24 * time.Hour,
			AdditionalPayloadSize: 64,
		},
		Cookie: config.CookieConfig{Name: "jwt", Age: 10 * time.Hour, HTTPOnly: true},
		Login: config.LoginConfig{
			UsernameMinLength:      3,
			PasswordMinLength:      4,
			UserAttrsWhitelist:     []string{"id", "firstName", "email", "profile.lastName"},
			UserDataResponseKey:    "profile",
			RejectDeactivatedUsers: true,
		},
	}

	e := &env{
		cfg:          cfg,
		users:        newFakeUserService(),
		sessionStore: sessions.NewMemoryStore(),
		refreshStore: refreshtokens.NewMemoryStore(),
	}
	e.mgr = sessions.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, e.sessionStore)

	e.router = gin.New()
	h := NewAuthHandler(cfg, e.users, e.mgr, e.sessionStore, e.refreshStore)
	h.Register(e.router.Group("/"))
	return e
}

// issue creates a live session for userID and returns the raw token.
func (e *env) issue(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now().UTC()
	raw, err := e.mgr.Issue(context.Background(), userID, time.Hour, nil, &sessions.SessionDetails{
		Created:      &now,
		LastActivity: &now,
		UserAgent:    "test-agent",
	})
	require.NoError(t, err)
	return raw
}

func (e *env) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func findAll(userID string) sessions.FindQuery {
	return sessions.FindQuery{UserID: userID}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type errorBody struct {
	Error struct {
		Code   int    `json:"code"`
		ID     string `json:"id"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	require.NotZero(t, e.Error.Code, "expected an error body, got %s", w.Body.String())
	return e
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

// cookieToken extracts the token value from the baked Set-Cookie header.
func cookieToken(t *testing.T, w *httptest.ResponseRecorder, name string) string {
	t.Helper()
	sc := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, sc, "expected a Set-Cookie header")
	first := strings.SplitN(sc, ";", 2)[0]
	parts := strings.SplitN(first, "=", 2)
	require.Len(t, parts, 2)
	require.Equal(t, name, parts[0])
	return parts[1]
}
