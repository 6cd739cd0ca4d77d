package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/limiter"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// Limiter 限流中间件提供者
type Limiter interface {
	Limit() gin.HandlerFunc
}

// RedisRateLimiter 多实例共享的IP固定窗口限流
type RedisRateLimiter struct {
	limiter *limiter.RateLimiter
	scope   string
	limit   int64
	window  time.Duration
	log     logger.Logger
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(rl *limiter.RateLimiter, scope string, limit int64, window time.Duration, log logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: rl, scope: scope, limit: limit, window: window, log: log}
}

// Limit 限流中间件，Redis不可用时放行
func (rl *RedisRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := redis.RateLimitKey(rl.scope, c.ClientIP())
		ok, err := rl.limiter.Allow(c.Request.Context(), key, rl.limit, rl.window)
		if err != nil {
			rl.log.WithContext(c.Request.Context()).Warn("rate limiter unavailable", logger.Err(err))
			c.Next()
			return
		}
		if !ok {
			metrics.RecordRateLimited(c.FullPath())
			httputil.ErrorResponse(c, errors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
