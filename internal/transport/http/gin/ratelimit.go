package httpgin

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
)

// RateLimit rejects clients that exceed the limiter's budget with 429.
// Requests pass through when the limiter is nil or Redis fails.
func RateLimit(limiter *redisrepo.SlidingWindowLimiter, logger *slog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()

		allowed, current, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", "key", key, "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Used", strconv.FormatInt(current, 10))

		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Kind:  kindRateLimited,
			})
			return
		}

		c.Next()
	}
}
