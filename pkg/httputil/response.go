// Package httputil provides HTTP utility functions.
package httputil

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
)

// Context keys shared by middleware and handlers.
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
	UsernameKey  = "username"
)

// Response represents a standard API response.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
}

// ErrorInfo represents error information in the response.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a bare JSON body with the request id echoed in a header.
func JSON(c *gin.Context, status int, body interface{}) {
	c.Header("X-Request-ID", GetRequestID(c))
	c.JSON(status, body)
}

// ErrorResponse sends an error response.
//
// Non-application errors become internal errors. The cause of an internal
// error is only exposed while gin runs in debug mode.
func ErrorResponse(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	info := &ErrorInfo{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		info.Message = errors.ErrInternal.Message
		info.Details = nil
		if gin.IsDebugging() && appErr.Err != nil {
			info.Details = appErr.Err.Error()
		}
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus, Response{
		Success:   false,
		Error:     info,
		RequestID: requestID,
	})
}

// GetRequestID retrieves or generates a request ID.
func GetRequestID(c *gin.Context) string {
	requestID := c.GetString(RequestIDKey)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return requestID
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(UserIDKey)
}

// ParamInt64 parses a positive int64 path parameter.
func ParamInt64(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.Validation("invalid " + name)
	}
	return v, nil
}

// QueryInt parses an int query parameter, falling back to def when absent or invalid.
func QueryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// CORSMiddleware sets CORS headers.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware sets security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// BindJSON binds the request body, turning binding failures into validation errors.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return errors.ErrValidation.WithDetails(err.Error())
	}
	return nil
}
