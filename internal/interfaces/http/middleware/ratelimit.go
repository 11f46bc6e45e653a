package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/ratelimit"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

type RateLimitMiddleware struct {
	limiter ratelimit.RateLimiter
	limits  ratelimit.Limits
	logger  logger.Interface
}

func NewRateLimitMiddleware(
	limiter ratelimit.RateLimiter,
	limits ratelimit.Limits,
	logger logger.Interface,
) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limits:  limits,
		logger:  logger,
	}
}

// LimitByClientIP throttles a route per caller address. A limiter failure
// (Redis down) lets the request through; throttling is protection, not a
// correctness requirement.
func (m *RateLimitMiddleware) LimitByClientIP(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())

		allowed, err := m.limiter.Allow(c.Request.Context(), key, m.limits)
		if err != nil {
			m.logger.Warnw("rate limiter unavailable", "error", err, "scope", scope)
			c.Next()
			return
		}
		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
