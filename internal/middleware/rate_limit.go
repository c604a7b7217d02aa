// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"strconv"

	"paysandbox-service/internal/pkg/ratelimit"
	"paysandbox-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware limits attempts per client IP within scope. A counter
// failure lets the request through.
func RateLimitMiddleware(limiter *ratelimit.RateLimiter, scope string, limit ratelimit.Limit, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, err := limiter.CheckAttempt(c.Request.Context(), scope, c.ClientIP(), limit)
		if err != nil {
			logger.Warn("rate limiter unavailable",
				zap.String("scope", scope),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit.Max, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "too many attempts, try again later", nil)
			return
		}
		c.Next()
	}
}
