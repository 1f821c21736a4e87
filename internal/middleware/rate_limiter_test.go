package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newLimitedEngine(cfg RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), NewRateLimiter(cfg).RateLimit())
	engine.GET("/api/v1/patients", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	engine := newLimitedEngine(RateLimiterConfig{Rate: 1, Burst: 2})

	assert.Equal(t, http.StatusOK, get(engine, "/api/v1/patients").Code)
	assert.Equal(t, http.StatusOK, get(engine, "/api/v1/patients").Code)

	w := get(engine, "/api/v1/patients")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.Contains(t, w.Body.String(), "trace_id")
}

func TestRateLimitExemptsHealthProbes(t *testing.T) {
	engine := newLimitedEngine(RateLimiterConfig{Rate: 1, Burst: 1})

	// Exhaust the budget, then probes must still answer.
	get(engine, "/api/v1/patients")
	get(engine, "/api/v1/patients")
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(engine, "/health/live").Code)
	}
}

func TestRateLimitCustomExemptPaths(t *testing.T) {
	engine := newLimitedEngine(RateLimiterConfig{
		Rate:        rate.Limit(1),
		Burst:       1,
		ExemptPaths: []string{"/api/v1/patients"},
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(engine, "/api/v1/patients").Code)
	}
	get(engine, "/health/live")
	assert.Equal(t, http.StatusTooManyRequests, get(engine, "/health/live").Code)
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := get(engine, "/ping")
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, w.Header().Get(HeaderXRequestID), w.Body.String())
}
