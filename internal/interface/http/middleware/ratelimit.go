package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/xiebiao/fastorder/pkg/errors"
	"github.com/xiebiao/fastorder/pkg/response"
)

// RateLimiter 按客户端IP限流
// 每个IP一个令牌桶：window内最多requests次请求，桶容量等于requests。
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	clients map[string]*client
	lastGC  time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器，requests<=0表示不限流
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		burst:   requests,
		idle:    window,
		clients: make(map[string]*client),
		lastGC:  time.Now(),
	}
	if requests > 0 && window > 0 {
		rl.limit = rate.Limit(float64(requests) / window.Seconds())
	} else {
		rl.limit = rate.Inf
	}
	return rl
}

// Allow 当前IP是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit == rate.Inf {
		return true
	}

	now := time.Now()
	rl.mu.Lock()
	cl, ok := rl.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now
	if now.Sub(rl.lastGC) > rl.idle {
		rl.evictLocked(now)
	}
	rl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// evictLocked 清理超过一个窗口没有请求的IP
func (rl *RateLimiter) evictLocked(now time.Time) {
	for ip, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idle {
			delete(rl.clients, ip)
		}
	}
	rl.lastGC = now
}

// Middleware gin中间件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			response.ErrorWithCode(c, apperrors.ErrCodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
