package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/infrastructure/ratelimit"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/utils"
)

// RateLimiter throttles requests per client IP with a limiter shared by
// every instance behind the load balancer.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	scope   string
	config  ratelimit.RateLimitConfig
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.RateLimiter, scope string, config ratelimit.RateLimitConfig, log logger.Interface) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		scope:   scope,
		config:  config,
		logger:  log,
	}
}

// Limit returns a Gin middleware that enforces the rate limit per client IP.
// A config with every window at zero disables it.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled() {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		decision, err := rl.limiter.Allow(c.Request.Context(), rl.scope+":"+clientIP, rl.config)
		if err != nil {
			// Fail open: a Redis outage must not reject gateway deliveries
			rl.logger.Warnw("rate limiter unavailable", "scope", rl.scope, "error", err)
			c.Next()
			return
		}

		if !decision.Allowed {
			rl.logger.Debugw("rate limit exceeded", "scope", rl.scope, "client_ip", clientIP)
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
