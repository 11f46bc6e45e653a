package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/middleware"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// LicenseHandler exposes the entitlement engine over HTTP.
type LicenseHandler struct {
	issueTrialUC *usecases.IssueTrialUseCase
	validateUC   *usecases.ValidateLicenseUseCase
	bindIPUC     *usecases.BindIPUseCase
	listUC       *usecases.ListUserLicensesUseCase
	logger       logger.Interface
}

func NewLicenseHandler(
	issueTrialUC *usecases.IssueTrialUseCase,
	validateUC *usecases.ValidateLicenseUseCase,
	bindIPUC *usecases.BindIPUseCase,
	listUC *usecases.ListUserLicensesUseCase,
	logger logger.Interface,
) *LicenseHandler {
	return &LicenseHandler{
		issueTrialUC: issueTrialUC,
		validateUC:   validateUC,
		bindIPUC:     bindIPUC,
		listUC:       listUC,
		logger:       logger,
	}
}

type issueTrialRequest struct {
	ScriptID string `json:"script_id" binding:"required"`
}

// IssueTrial handles POST /licenses/trial for the authenticated user.
func (h *LicenseHandler) IssueTrial(c *gin.Context) {
	userSID, ok := middleware.UserSID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req issueTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "script_id is required")
		return
	}

	issued, err := h.issueTrialUC.Execute(c.Request.Context(), usecases.IssueTrialCommand{
		UserSID:   userSID,
		ScriptSID: req.ScriptID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, issued)
}

type validateLicenseRequest struct {
	PrivateKey string `json:"private_key" binding:"required,licensekey"`
	// IP optionally overrides the transport address, for callers validating
	// on behalf of an end device behind them.
	IP string `json:"ip"`
}

// Validate handles POST /licenses/validate. The license key is the
// credential; no session is required. Non-Valid statuses are 200 responses,
// only an unknown key is an error.
func (h *LicenseHandler) Validate(c *gin.Context) {
	var req validateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "a well-formed private_key is required")
		return
	}

	observedIP := req.IP
	if observedIP == "" {
		observedIP = c.ClientIP()
	}

	result, err := h.validateUC.Execute(c.Request.Context(), usecases.ValidateLicenseCommand{
		PrivateKey: req.PrivateKey,
		ObservedIP: observedIP,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

type bindIPRequest struct {
	IP string `json:"ip" binding:"required"`
}

// BindIP handles PUT /users/me/ip.
func (h *LicenseHandler) BindIP(c *gin.Context) {
	userSID, ok := middleware.UserSID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req bindIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "ip is required")
		return
	}

	if err := h.bindIPUC.Execute(c.Request.Context(), usecases.BindIPCommand{
		UserSID: userSID,
		IP:      req.IP,
	}); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "IP binding updated", nil)
}

// ListMine handles GET /users/me/licenses.
func (h *LicenseHandler) ListMine(c *gin.Context) {
	userSID, ok := middleware.UserSID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	licenses, err := h.listUC.Execute(c.Request.Context(), usecases.ListUserLicensesQuery{
		UserSID: userSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"licenses": licenses})
}
