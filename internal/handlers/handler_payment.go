package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

type paymentHandler struct {
	ledgerService  portssvc.LedgerSvcFacade
	paymentService portssvc.PaymentSvcFacade
}

// RegisterPaymentRoutes registers transfer and payment listing routes.
func RegisterPaymentRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, paymentService portssvc.PaymentSvcFacade) {
	h := &paymentHandler{ledgerService: ledgerService, paymentService: paymentService}

	payments := rg.Group("/payments")
	{
		payments.POST("", h.transfer)
		payments.GET("", h.listPayments)
		payments.GET("/all", middleware.RequireAdmin(), h.listAllPayments)
	}
}

// transfer godoc
// @Summary Transfer money
// @Description Moves money from one of the caller's accounts to another account and records a debit and a credit payment.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 201 {object} dto.TransferResponse
// @Failure 400 {object} map[string]string "Invalid amount or same account"
// @Failure 403 {object} map[string]string "Sender not owned by caller"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Sender blocked or contention"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 502 {object} dto.PartialFailureResponse "Cross-service transfer could not complete"
// @Security BearerAuth
// @Router /payments [post]
func (h *paymentHandler) transfer(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request format", err)
		return
	}

	result, err := h.ledgerService.Transfer(c.Request.Context(), caller, req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		respondError(c, err, "transfer")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Transfer completed",
		slog.String("transfer_id", result.TransferID),
		slog.Bool("cross_service", result.CrossService))
	c.JSON(http.StatusCreated, dto.ToTransferResponse(result))
}

// listPayments godoc
// @Summary List the caller's payments
// @Description Newest first, paged with nextToken.
// @Tags payments
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   accountID query string false "Only payments of this account"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Security BearerAuth
// @Router /payments [get]
func (h *paymentHandler) listPayments(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var params dto.ListPaymentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "query parameters", err)
		return
	}
	resp, err := h.paymentService.ListPayments(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "list payments")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listAllPayments godoc
// @Summary Snapshot of the ledger
// @Description Admin only. Pages through every local payment; used by other services to replicate.
// @Tags payments
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /payments/all [get]
func (h *paymentHandler) listAllPayments(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var params dto.ListPaymentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "query parameters", err)
		return
	}
	resp, err := h.paymentService.ListAllPayments(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "list payments")
		return
	}
	c.JSON(http.StatusOK, resp)
}
