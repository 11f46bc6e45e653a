package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/application/payment/usecases"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
	"github.com/scripthub-inc/scripthub/internal/shared/utils"
)

// PaymentHandler receives capture and refund notifications from the billing
// collaborator. Both routes sit behind the service-token middleware; the
// monetary side has already happened when these are called.
type PaymentHandler struct {
	recordUC *usecases.RecordPaymentUseCase
	refundUC *usecases.HandleRefundUseCase
	logger   logger.Interface
}

func NewPaymentHandler(
	recordUC *usecases.RecordPaymentUseCase,
	refundUC *usecases.HandleRefundUseCase,
	logger logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		recordUC: recordUC,
		refundUC: refundUC,
		logger:   logger,
	}
}

type recordPaymentRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	ScriptID      string `json:"script_id" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	AmountCents   int64  `json:"amount_cents" binding:"required"`
	Currency      string `json:"currency"`
	LicenseType   string `json:"license_type" binding:"required,oneof=lifetime timed"`
	DurationHours int    `json:"duration_hours"`
}

// RecordPayment handles POST /payments: a confirmed capture that issues the
// paid license. A replayed webhook conflicts on the transaction ID.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid payment payload: "+err.Error())
		return
	}

	result, err := h.recordUC.Execute(c.Request.Context(), usecases.RecordPaymentCommand{
		UserSID:       req.UserID,
		ScriptSID:     req.ScriptID,
		TransactionID: req.TransactionID,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		LicenseType:   req.LicenseType,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

type refundRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// HandleRefund handles POST /payments/refund. Idempotent: retried deliveries
// report already_refunded instead of failing.
func (h *PaymentHandler) HandleRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "transaction_id is required")
		return
	}

	result, err := h.refundUC.Execute(c.Request.Context(), usecases.HandleRefundCommand{
		TransactionID: req.TransactionID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}
