package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func corsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{testOrigin}))
	router.POST("/api/ai/documents/:id/summarize", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestCORSOptionsPreflight(t *testing.T) {
	router := corsRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/documents/123/summarize", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, testOrigin, resp.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, resp.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", resp.Header().Get("Access-Control-Max-Age"))
}

func TestCORSHeadersOnPost(t *testing.T) {
	router := corsRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/documents/123/summarize", nil)
	req.Header.Set("Origin", testOrigin)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, testOrigin, resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router := corsRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/documents/123/summarize", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}
