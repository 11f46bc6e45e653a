package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// Logger emits one structured record per request, leveled by response status.
func Logger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}

		if rid := c.GetString(ContextRequestID); rid != "" {
			args = append(args, "request_id", rid)
		}
		if userSID, ok := UserSID(c); ok {
			args = append(args, "user_sid", userSID)
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.Last().Error())
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Errorw("HTTP request completed", args...)
		case status >= 400:
			log.Warnw("HTTP request completed", args...)
		default:
			log.Debugw("HTTP request completed", args...)
		}
	}
}
