package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultAllowedOrigin = "http://localhost:3000"

// CORS allows the configured browser origins. A "*" entry opens the API to
// every origin and disables credentials.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
	for _, o := range allowedOrigins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowOrigins = nil
			cfg.AllowCredentials = false
			break
		}
		cfg.AllowOrigins = append(cfg.AllowOrigins, trimmed)
	}
	if !cfg.AllowAllOrigins && len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{defaultAllowedOrigin}
	}
	return cors.New(cfg)
}
