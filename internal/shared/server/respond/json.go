package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Accepted writes a 202 response for work that is queued but not finished.
// Clients poll the resource named by Location when it is set.
func Accepted(c *gin.Context, location string, payload any) {
	if location != "" {
		c.Header("Location", location)
	}
	JSON(c, http.StatusAccepted, payload)
}

// Message writes a {"message": ...} body, the shape used for acknowledgements
// such as sign-up and delete.
func Message(c *gin.Context, status int, message string) {
	JSON(c, status, gin.H{"message": message})
}
