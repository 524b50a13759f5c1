package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// A panic after the response was written only gets logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"method":     c.Request.Method,
				"route":      c.FullPath(),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
			}
			if userID := UserIDFromContext(c); userID != "" {
				fields["user_id"] = userID
			}
			if docID := c.Param("id"); docID != "" {
				fields["document_id"] = docID
			}
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
