package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// ServiceTokenHeader carries the shared secret for service-to-service calls
// (payment webhooks, marketplace session establishment, admin operations).
const ServiceTokenHeader = "X-Service-Token"

type ServiceTokenMiddleware struct {
	token  string
	logger logger.Interface
}

func NewServiceTokenMiddleware(token string, logger logger.Interface) *ServiceTokenMiddleware {
	return &ServiceTokenMiddleware{
		token:  token,
		logger: logger,
	}
}

// RequireServiceToken guards internal endpoints. An empty configured token
// disables the surface entirely rather than leaving it open.
func (m *ServiceTokenMiddleware) RequireServiceToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			utils.ErrorResponse(c, http.StatusForbidden, "service endpoints are disabled")
			c.Abort()
			return
		}

		presented := c.GetHeader(ServiceTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(m.token)) != 1 {
			m.logger.Warnw("service token rejected", "ip", c.ClientIP(), "path", c.Request.URL.Path)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid service token")
			c.Abort()
			return
		}

		c.Next()
	}
}
