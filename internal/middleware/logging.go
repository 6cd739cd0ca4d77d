package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// Logging middleware logs HTTP requests with structured information
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []logger.Field{
			logger.String("request_id", GetRequestID(c)),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", statusCode),
			logger.String("ip", c.ClientIP()),
			logger.String("user_agent", c.Request.UserAgent()),
			logger.Int64("latency_ms", latency.Milliseconds()),
		}
		// Add user ID if authenticated
		if userID := httputil.GetUserID(c); userID > 0 {
			fields = append(fields, logger.Int64("user_id", userID))
		}

		// Level follows status class
		switch {
		case statusCode >= 500:
			if len(c.Errors) > 0 {
				fields = append(fields, logger.String("error", c.Errors.String()))
			}
			log.Error("HTTP request failed with server error", fields...)
		case statusCode >= 400:
			log.Warn("HTTP request failed with client error", fields...)
		default:
			log.Info("HTTP request completed", fields...)
		}
	}
}
