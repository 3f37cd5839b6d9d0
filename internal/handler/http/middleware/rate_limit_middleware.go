package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	"github.com/orbitcart/auth-service/internal/infrastructure/ratelimit"
)

// RateLimit applies a per-client-IP fixed-window limit under the given key
// prefix. Limiter backend failures fail open; losing rate limiting is better
// than losing logins.
func RateLimit(limiter *ratelimit.RedisRateLimiter, prefix string, rule config.RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rule.Enabled {
			c.Next()
			return
		}

		key := prefix + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"code":    "RATE_LIMITED",
				"message": "too many requests, try again later",
			}})
			return
		}
		c.Next()
	}
}
