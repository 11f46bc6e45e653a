package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/middleware"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// AuthHandler manages session tokens. Session establishment is a
// service-token route (the marketplace core authenticates the user first);
// refresh and logout are public/bearer routes.
type AuthHandler struct {
	sessions    *auth.SessionService
	coordinator *auth.SessionTokenCoordinator
	logger      logger.Interface
}

func NewAuthHandler(
	sessions *auth.SessionService,
	coordinator *auth.SessionTokenCoordinator,
	logger logger.Interface,
) *AuthHandler {
	return &AuthHandler{
		sessions:    sessions,
		coordinator: coordinator,
		logger:      logger,
	}
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func fromTokenPair(pair *auth.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

type establishSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// EstablishSession handles POST /auth/sessions (service token).
func (h *AuthHandler) EstablishSession(c *gin.Context) {
	var req establishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	pair, err := h.sessions.Establish(c.Request.Context(), req.UserID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, fromTokenPair(pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh. Renewal is single-flight per session;
// concurrent callers holding the same refresh token all receive the same
// rotated pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.coordinator.Renew(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", fromTokenPair(pair))
}

// Logout handles DELETE /auth/sessions/current (bearer auth).
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, exists := c.Get(middleware.ContextSessionID)
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	if err := h.sessions.RevokeSession(c.Request.Context(), sessionID.(string)); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
