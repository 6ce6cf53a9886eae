package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naka-gawa/pr-dashboard/internal/metrics"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger logs HTTP requests with method, path, status and duration,
// and records them in m.
func RequestLogger(log *zap.SugaredLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveHTTP(c.Request.Method, route, status, dur)

		log.Infow("http",
			"method", c.Request.Method,
			"path", c.Request.URL.RequestURI(),
			"status", status,
			"duration_ms", float64(dur.Microseconds())/1000.0,
			"request_id", c.GetString(ctxRequestID),
		)
	}
}
