package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveHTTP(method, route, code string, elapsed time.Duration)
}

func CustomLogger(log logger.Interface, observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if observer != nil {
			observer.ObserveHTTP(c.Request.Method, c.FullPath(), strconv.Itoa(status), latency)
		}

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}

		if requestID := c.GetString(constants.ContextKeyRequestID); requestID != "" {
			args = append(args, "request_id", requestID)
		}

		if subject := c.GetString(constants.ContextKeySubject); subject != "" {
			args = append(args, "subject", subject)
		}

		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Errorw("HTTP request completed with server error", args...)
		case status >= 400:
			log.Warnw("HTTP request completed with client error", args...)
		default:
			log.Debugw("HTTP request completed successfully", args...)
		}
	}
}
