package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compdash/compdash/backend/go-services/pkg/logger"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns or propagates a request id, stores it under
// "request_id" in the gin context and logs one line per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		l := logger.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		switch {
		case c.Writer.Status() >= 500:
			l.Error("request")
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			l.Debug("request")
		default:
			l.Info("request")
		}
	}
}
