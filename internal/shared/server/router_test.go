package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/shared/auth"
	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/health"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newTestRouter(t *testing.T, perMinute int) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewManager("test-secret", time.Hour, "dev")
	require.NoError(t, err)
	token, err := tokens.Issue("user-1", "alice", "", "USER")
	require.NoError(t, err)

	r := NewRouter(RouterDeps{
		Config:  config.Config{Env: "dev", CORSAllowOrigin: []string{"http://localhost:3000"}, AIRequestsPerMinute: perMinute},
		Tokens:  tokens,
		Limiter: middleware.NewRateLimiter(nil),
		Health:  health.NewService(nil),
		AI:      pingRoutes{},
	})
	return r, token
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPublicEndpointsSkipAuth(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	resp := serve(r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true,"db":"memory"}`, resp.Body.String())

	resp = serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "documents_uploaded_total"), resp.Body.String())

	resp = serve(r, http.MethodPost, "/api/ai/ping", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestAIRoutesAreRateLimitedPerUser(t *testing.T) {
	r, token := newTestRouter(t, 3)

	// Burst is floored at five requests.
	for i := 0; i < 5; i++ {
		resp := serve(r, http.MethodPost, "/api/ai/ping", token)
		require.Equal(t, http.StatusOK, resp.Code, "request %d", i)
	}
	resp := serve(r, http.MethodPost, "/api/ai/ping", token)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))

	// Polling reads draw from their own bucket.
	resp = serve(r, http.MethodGet, "/api/ai/ping", token)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
