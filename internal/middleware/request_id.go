package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// RequestID middleware injects request ID into context
// Uses X-Request-ID header if provided, otherwise generates a new UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honor an upstream ID, mint one otherwise
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Visible to handlers and to the context logger
		c.Set(httputil.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		// Echo back
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(c *gin.Context) string {
	return c.GetString(httputil.RequestIDKey)
}
