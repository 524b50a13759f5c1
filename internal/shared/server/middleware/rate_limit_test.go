package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", id)
		c.Next()
	}
}

func TestRateLimitGroupsAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.Request.Method == http.MethodGet && c.FullPath() == "/api/ai/documents/:id/analyses" {
			return "POLLING"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(withUser("user-1"))
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 2},
			"POLLING": {Rate: 5, Burst: 10},
		},
	}))

	r.GET("/api/ai/documents/:id/analyses", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/ai/documents/:id/summarize", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/ai/documents/doc-1/analyses", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equalf(t, http.StatusOK, resp.Code, "polling request %d", i+1)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/ai/documents/doc-1/summarize", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equalf(t, http.StatusOK, resp.Code, "summarize request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ai/documents/doc-1/summarize", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(withUser("user-1"))
	r.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 1},
		},
	}))
	r.GET("/api/ai/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodGet, "/api/ai/limited", nil))
	require.Equal(t, http.StatusOK, resp1.Code)

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodGet, "/api/ai/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, resp2.Code)
	assert.Equal(t, "1", resp2.Header().Get("Retry-After"))

	var payload struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&payload))
	assert.Equal(t, "rate_limited", payload.Code)
	assert.NotEmpty(t, payload.Message)
	assert.Contains(t, payload.Details, "retryAfterMs")
}

func TestRateLimitBucketsArePerUser(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	ok, _ := limiter.Allow(context.Background(), "alice|DEFAULT", rule)
	assert.True(t, ok)
	ok, _ = limiter.Allow(context.Background(), "alice|DEFAULT", rule)
	assert.False(t, ok)
	ok, _ = limiter.Allow(context.Background(), "bob|DEFAULT", rule)
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = limiter.Allow(context.Background(), "alice|DEFAULT", rule)
	assert.True(t, ok, "bucket refills after one token interval")
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	limiter, client, err := NewRedisLimiter(ctx, addr, os.Getenv("REDIS_PASSWORD"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	limiter.prefix = "ratelimit-test:" + time.Now().Format("150405.000000") + ":"

	rule := RateLimitRule{Rate: 0.5, Burst: 2}
	for i := 0; i < 2; i++ {
		ok, _ := limiter.Allow(ctx, "user-1|AI", rule)
		require.True(t, ok)
	}
	ok, retry := limiter.Allow(ctx, "user-1|AI", rule)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
}
