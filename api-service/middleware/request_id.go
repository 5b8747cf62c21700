package middleware

import (
	"github.com/gin-gonic/gin"

	utils "taskmaster-backend/shared/utils/auth"
)

// RequestID attaches a correlation id to every request. The id is
// request-scoped and travels through the gin context into audit records
// and log lines, never through package-level state.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			if generated, err := utils.GenerateRequestID(); err == nil {
				requestID = generated
			}
		}

		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
