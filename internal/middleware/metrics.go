package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/observ"
)

// Metrics records in-flight requests, totals and latency per route.
func Metrics(m *observ.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		start := time.Now()
		c.Next()

		route := routeOf(c)
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}
