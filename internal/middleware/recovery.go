package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				// Log panic with stack
				log.Error("Panic recovered",
					logger.String("request_id", GetRequestID(c)),
					logger.String("method", c.Request.Method),
					logger.String("path", c.Request.URL.Path),
					logger.String("ip", c.ClientIP()),
					logger.String("panic", fmt.Sprintf("%v", r)),
					logger.String("stack", string(debug.Stack())),
				)

				// Aborts with the standard error envelope
				httputil.ErrorResponse(c, errors.Wrap(fmt.Errorf("panic: %v", r),
					errors.ErrCodeInternal, errors.ErrInternal.Message, http.StatusInternalServerError))
			}
		}()

		c.Next()
	}
}
