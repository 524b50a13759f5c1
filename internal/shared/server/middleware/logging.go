package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		documentID, _ := c.Get("documentId")
		analysisID, _ := c.Get("analysisId")
		statusTransition := ""
		if raw, ok := c.Get("statusTransition"); ok {
			if s, ok := raw.(string); ok {
				statusTransition = s
			}
		}

		fields := map[string]any{
			"request_id":        reqID,
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            status,
			"status_transition": statusTransition,
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"document_id":       documentID,
			"analysis_id":       analysisID,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
