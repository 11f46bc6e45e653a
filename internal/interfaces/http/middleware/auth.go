package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// Context keys set by the auth middleware.
const (
	ContextUserSID   = "user_sid"
	ContextSessionID = "session_id"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

// RequireAuth verifies the bearer access token and stores the principal on the
// request context. Expired tokens get a 401 with the token_expired type so the
// session layer knows to renew rather than re-authenticate.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(token)
		if err != nil {
			m.logger.Warnw("failed to verify access token", "error", err, "ip", c.ClientIP())
			utils.ErrorResponseWithError(c, err)
			c.Abort()
			return
		}

		if claims.TokenType != auth.TokenTypeAccess {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid token type")
			c.Abort()
			return
		}

		c.Set(ContextUserSID, claims.UserSID)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// UserSID returns the authenticated principal set by RequireAuth.
func UserSID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserSID)
	if !ok {
		return "", false
	}
	sid, ok := v.(string)
	return sid, ok && sid != ""
}
