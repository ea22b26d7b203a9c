package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/domain"
)

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer   abc "))
	assert.Empty(t, extractBearerToken("Basic abc"))
	assert.Empty(t, extractBearerToken(""))
}

func TestMapDomainError(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	status, body, header := mapDomainError(&domain.RateLimitError{ResetAt: now.Add(90 * time.Second)}, now)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, now.Add(90*time.Second).UnixMilli(), body.ResetTime)
	assert.Equal(t, "90", header.Get("Retry-After"))

	status, body, _ = mapDomainError(domain.NewValidationError("email", "Missing email"), now)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing email", body.Error)

	status, _, _ = mapDomainError(domain.ErrConflict, now)
	assert.Equal(t, http.StatusConflict, status)

	status, _, _ = mapDomainError(domain.ErrUnauthorized, now)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _, _ = mapDomainError(domain.ErrNotFound, now)
	assert.Equal(t, http.StatusNotFound, status)

	status, body, _ = mapDomainError(domain.WrapStorage("insert", errors.New("dial tcp: secret-host")), now)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body.Error)
}

func TestLoginThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	engine := gin.New()
	require.NoError(t, engine.SetTrustedProxies(nil))
	engine.POST("/login", loginThrottleMiddleware(LoginThrottleConfig{RequestsPerMinute: 1, Burst: 2}, clock), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	send := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("1.1.1.1:4000", ""))
	assert.Equal(t, http.StatusNoContent, send("1.1.1.1:4001", "9.9.9.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.1.1.1:4002", "9.9.9.2"), "forwarded header from an untrusted peer must not pick a fresh bucket")
	assert.Equal(t, http.StatusNoContent, send("2.2.2.2:4000", ""))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, send("1.1.1.1:4000", ""))
}

func TestCORSMiddleware(t *testing.T) {
	build := func(env string, origins []string) *gin.Engine {
		engine := gin.New()
		if handler := corsMiddleware(env, origins, logging.Nop()); handler != nil {
			engine.Use(handler)
		}
		engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return engine
	}
	request := func(engine *gin.Engine, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	listed := build("production", []string{"https://quiz.example.com/"})
	rec := request(listed, "https://quiz.example.com")
	assert.Equal(t, "https://quiz.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	rec = request(listed, "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	dev := build("development", nil)
	rec = request(dev, "http://localhost:5173")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Nil(t, corsMiddleware("production", nil, logging.Nop()))
	require.NotNil(t, corsMiddleware("production", []string{"https://a.example"}, logging.Nop()))
}
