package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
	"golang.org/x/time/rate"
)

// maxTrackedIPs 超过该数量时清空限流器表
const maxTrackedIPs = 10000

// RateLimiter IP维度速率限制器
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int

	cleanupInterval time.Duration
	lastCleanup     time.Time
	cleanupMu       sync.Mutex
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:        make(map[string]*rate.Limiter),
		rate:            rate.Limit(perSecond),
		burst:           burst,
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

// getLimiter 获取IP限流器
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	// 双重检查
	if limiter, exists = rl.limiters[ip]; !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[ip] = limiter
	}
	return limiter
}

// cleanup 清理过多的限流器
func (rl *RateLimiter) cleanup() {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) < rl.cleanupInterval {
		return
	}

	rl.mu.Lock()
	if len(rl.limiters) > maxTrackedIPs {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	rl.mu.Unlock()

	rl.lastCleanup = now
}

// Limit 限流中间件
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.cleanup()

		if !rl.getLimiter(c.ClientIP()).Allow() {
			metrics.RecordRateLimited(c.FullPath())
			httputil.ErrorResponse(c, errors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
