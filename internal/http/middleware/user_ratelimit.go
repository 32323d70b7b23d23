package middleware

import (
	"math"
	"net/http"
	"strconv"

	"noizlabs/internal/logger"
	"noizlabs/internal/metrics"
	"noizlabs/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// UserRateLimit limits calls per authenticated user (not per IP) with a
// sliding window. It must run after JWT.
func UserRateLimit(l ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": "unauthorized"})
			return
		}

		res, err := l.Allow(c.Request.Context(), scope+":"+strconv.FormatInt(userID, 10))
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("user rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			metrics.RLBlocked.WithLabelValues(scope + ":" + c.FullPath()).Inc()
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"reason":      "rate_limited",
				"retry_after": retry,
			})
			return
		}

		metrics.RLRequests.WithLabelValues(scope + ":" + c.FullPath()).Inc()
		c.Next()
	}
}
