package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const traceIDKey = "trace_id"

// TraceID assigns each request a trace ID (honoring an inbound X-Trace-ID
// header) and logs request start/finish with it.
func TraceID(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(traceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		entry := logger.WithFields(logrus.Fields{
			"trace_id":    traceID,
			"http_method": c.Request.Method,
			"http_path":   c.Request.URL.Path,
		})

		start := time.Now()
		c.Next()

		entry.WithFields(logrus.Fields{
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request finished")
	}
}

// requestLogger returns a logger entry scoped to the request's trace ID.
func (h *Handler) requestLogger(c *gin.Context) *logrus.Entry {
	if traceID, ok := c.Get(traceIDKey); ok {
		return h.logger.WithField("trace_id", traceID)
	}
	return logrus.NewEntry(h.logger)
}
