package handlers

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

type adminHandler struct {
	syncService    portssvc.SyncSvcFacade
	replicaService portssvc.ReplicaSvcFacade
	ledgerService  portssvc.LedgerSvcFacade
}

// RegisterAdminRoutes registers maintenance routes. Every route requires the admin role.
func RegisterAdminRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &adminHandler{
		syncService:    services.Sync,
		replicaService: services.Replica,
		ledgerService:  services.Ledger,
	}

	admin := rg.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/sync", h.syncAll)
		admin.POST("/sync/:collection", h.syncCollection)
		admin.GET("/accounts/:id/ledger-check", h.ledgerCheck)
		admin.DELETE("/payments/:id", h.correctPayment)
	}
}

// syncAll godoc
// @Summary Resynchronize all replicas
// @Description Pulls every replicated collection from its owner. A failing collection does not stop the others.
// @Tags admin
// @Produce  json
// @Success 200 {object} dto.SyncReportResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /admin/sync [post]
func (h *adminHandler) syncAll(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	report, err := h.syncService.SyncAll(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "synchronize")
		return
	}
	c.JSON(http.StatusOK, dto.ToSyncReportResponse(report))
}

// syncCollection godoc
// @Summary Resynchronize one collection
// @Tags admin
// @Produce  json
// @Param   collection path string true "clients, accounts, credit-cards or payments"
// @Success 200 {object} domain.CollectionSyncResult
// @Failure 400 {object} map[string]string "Unknown collection"
// @Failure 503 {object} map[string]string "Owner unavailable"
// @Security BearerAuth
// @Router /admin/sync/{collection} [post]
func (h *adminHandler) syncCollection(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	collection := domain.Collection(c.Param("collection"))
	if !slices.Contains(domain.SyncOrder, collection) {
		respondError(c, fmt.Errorf("%w: unknown collection %q", apperrors.ErrValidation, collection), "synchronize")
		return
	}
	res, err := h.replicaService.Refresh(c.Request.Context(), collection, caller)
	if err != nil {
		respondError(c, err, "synchronize")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ledgerCheck godoc
// @Summary Compare a stored balance with its ledger
// @Tags admin
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.LedgerCheckResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /admin/accounts/{id}/ledger-check [get]
func (h *adminHandler) ledgerCheck(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	check, err := h.ledgerService.VerifyBalance(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "check ledger")
		return
	}
	c.JSON(http.StatusOK, dto.ToLedgerCheckResponse(check))
}

// correctPayment godoc
// @Summary Remove a payment
// @Description Deletes a payment and reverses its effect on the account balance.
// @Tags admin
// @Produce  json
// @Param   id path string true "Payment ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Security BearerAuth
// @Router /admin/payments/{id} [delete]
func (h *adminHandler) correctPayment(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	account, err := h.ledgerService.CorrectPayment(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "correct payment")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}
