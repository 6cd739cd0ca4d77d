package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/jwt"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// TokenValidator 令牌校验接口
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// PublicRoute 免认证路由，Path 为 gin 路由模板
type PublicRoute struct {
	Method string
	Path   string
}

// Auth JWT认证中间件
//
// 白名单按 gin 路由模板匹配，不依赖原始 URL。
func Auth(validator TokenValidator, public []PublicRoute, log logger.Logger) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(public))
	for _, r := range public {
		allow[r.Method+" "+r.Path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allow[c.Request.Method+" "+c.FullPath()]; ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.ErrorResponse(c, errors.ErrUnauthorized.WithMessage("Missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.ErrorResponse(c, errors.ErrUnauthorized.WithMessage("Invalid authorization header format"))
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			log.Warn("JWT validation failed",
				logger.String("request_id", GetRequestID(c)),
				logger.Err(err),
			)
			httputil.ErrorResponse(c, err)
			return
		}

		c.Set(httputil.UserIDKey, claims.UserID)
		c.Set(httputil.UsernameKey, claims.Username)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}
