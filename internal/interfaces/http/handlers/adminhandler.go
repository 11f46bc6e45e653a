package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// AdminHandler exposes the moderation surface: manual revocation and the
// revoked-record purge. Reached only through the service-token middleware.
type AdminHandler struct {
	revokeUC *usecases.RevokeLicenseUseCase
	purgeUC  *usecases.PurgeRevokedUseCase
	logger   logger.Interface
}

func NewAdminHandler(
	revokeUC *usecases.RevokeLicenseUseCase,
	purgeUC *usecases.PurgeRevokedUseCase,
	logger logger.Interface,
) *AdminHandler {
	return &AdminHandler{
		revokeUC: revokeUC,
		purgeUC:  purgeUC,
		logger:   logger,
	}
}

type revokeLicenseRequest struct {
	Reason string `json:"reason"`
}

// RevokeLicense handles POST /admin/licenses/:id/revoke. Revoking an
// already-revoked license succeeds and reports already_revoked.
func (h *AdminHandler) RevokeLicense(c *gin.Context) {
	licenseSID := c.Param("id")
	if licenseSID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "license ID is required")
		return
	}

	var req revokeLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.revokeUC.Execute(c.Request.Context(), usecases.RevokeLicenseCommand{
		LicenseSID: licenseSID,
		Reason:     req.Reason,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// PurgeRevoked handles DELETE /admin/licenses/revoked.
func (h *AdminHandler) PurgeRevoked(c *gin.Context) {
	deleted, err := h.purgeUC.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"deleted": deleted})
}
