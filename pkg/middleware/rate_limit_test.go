package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(rps, burst))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doGet(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	r := limitedRouter(1, 2)

	assert.Equal(t, http.StatusOK, doGet(r, "10.1.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "10.1.0.1:1000").Code)
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	r := limitedRouter(1, 2)

	doGet(r, "10.1.0.2:1000")
	doGet(r, "10.1.0.2:1000")
	w := doGet(r, "10.1.0.2:1000")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	r := limitedRouter(1, 1)

	assert.Equal(t, http.StatusOK, doGet(r, "10.1.0.3:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "10.1.0.3:1000").Code)
	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, doGet(r, "10.1.0.4:1000").Code)
}
