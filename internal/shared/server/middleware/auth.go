package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/auth"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	usernameKey  = "username"
	userRoleKey  = "userRole"
	userEmailKey = "userEmail"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth requires a valid bearer token and stores the identity in context.
// Paths listed in public skip the check.
func Auth(verifier TokenVerifier, public ...string) gin.HandlerFunc {
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if _, ok := open[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "JWT token is missing or malformed", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "JWT token is missing or malformed", nil)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			msg := "JWT token is invalid"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "JWT token is expired"
			}
			respond.Error(c, http.StatusUnauthorized, "unauthorized", msg, nil)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		if claims.Role != "" {
			c.Set(userRoleKey, claims.Role)
		}
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UsernameFromContext fetches the username set by the auth middleware.
func UsernameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(usernameKey)
}
