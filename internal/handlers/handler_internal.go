package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterInternalRoutes registers the service-to-service routes used by
// peer ledgers. They need an admin or service token.
func RegisterInternalRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	internal := rg.Group("/internal", middleware.RequireAdmin())
	internal.POST("/accounts/:id/credit", func(c *gin.Context) {
		creditAccount(c, ledgerService)
	})
}

// creditAccount godoc
// @Summary Apply the credit leg of a transfer
// @Description Idempotent on transferId: repeating a credit returns the payment recorded the first time.
// @Tags internal
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   credit body dto.InternalCreditRequest true "Credit"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} map[string]string "Invalid amount"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /internal/accounts/{id}/credit [post]
func creditAccount(c *gin.Context, ledgerService portssvc.LedgerSvcFacade) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.InternalCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request format", err)
		return
	}
	payment, err := ledgerService.CreditFromTransfer(c.Request.Context(), caller, c.Param("id"), req.TransferID, req.Amount)
	if err != nil {
		respondError(c, err, "credit account")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}
