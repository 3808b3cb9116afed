package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/lalith-99/realmhub/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimit rejects a client IP that has spent its budget with 429 and a
// resource_exhausted error. Limiter errors are logged and the request is
// let through.
func RateLimit(limiter ratelimit.Limiter, m *observ.Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			m.RateLimited.WithLabelValues(routeOf(c)).Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    apperr.CodeResourceExhausted,
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
