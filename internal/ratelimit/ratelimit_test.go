package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLimiter returns a limiter with a controllable clock and no sweeper.
func newTestLimiter(limit int, now *time.Time) *Limiter {
	l := &Limiter{
		limit:  limit,
		now:    func() time.Time { return *now },
		counts: make(map[string]int),
		stop:   make(chan struct{}),
	}
	return l
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 30, 0, time.UTC)
	l := newTestLimiter(120, &now)

	for i := 1; i <= 120; i++ {
		ok, n := l.Allow("10.0.0.1", "POST /v1/score")
		assert.True(t, ok, "request %d should be admitted", i)
		assert.Equal(t, i, n)
	}

	// Requests 121..130 in the same window are rejected.
	for i := 121; i <= 130; i++ {
		ok, _ := l.Allow("10.0.0.1", "POST /v1/score")
		assert.False(t, ok, "request %d should be rejected", i)
	}
}

func TestLimiter_WindowReset(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 59, 0, time.UTC)
	l := newTestLimiter(2, &now)

	l.Allow("a", "GET /v1/alerts")
	l.Allow("a", "GET /v1/alerts")
	ok, _ := l.Allow("a", "GET /v1/alerts")
	assert.False(t, ok)

	// One second later the epoch-aligned window rolls over.
	now = now.Add(time.Second)
	ok, n := l.Allow("a", "GET /v1/alerts")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestLimiter_IdentitiesAreIsolated(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, &now)

	ok, _ := l.Allow("alice", "POST /v1/score")
	assert.True(t, ok)
	ok, _ = l.Allow("alice", "POST /v1/score")
	assert.False(t, ok)

	// A different caller on the same route has its own budget.
	ok, _ = l.Allow("bob", "POST /v1/score")
	assert.True(t, ok)
}

func TestLimiter_RoutesAreIsolated(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, &now)

	ok, _ := l.Allow("alice", "POST /v1/score")
	assert.True(t, ok)
	ok, _ = l.Allow("alice", "POST /v1/score")
	assert.False(t, ok)

	// Same caller, different route.
	ok, _ = l.Allow("alice", "GET /v1/alerts")
	assert.True(t, ok)
}

func TestMiddleware_Returns429WithDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, &now)

	router := gin.New()
	router.Use(Middleware(l, true))
	router.POST("/v1/score", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/score", nil)
		req.Header.Set("X-API-Key", "caller-1")
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	rejected := do()
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details struct {
			LimitRPM int `json:"limit_rpm"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rejected.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Error)
	assert.Equal(t, "Too many requests (limit: 2/min).", body.Message)
	assert.Equal(t, 2, body.Details.LimitRPM)
}

func TestMiddleware_DisabledPassesEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, &now)

	router := gin.New()
	router.Use(Middleware(l, false))
	router.GET("/v1/alerts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/alerts", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(10)
	l.Stop()
	l.Stop()
}
