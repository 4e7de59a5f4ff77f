package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	ledgerService  portssvc.LedgerSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade, ls portssvc.LedgerSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: as,
		ledgerService:  ls,
	}
}

// RegisterAccountRoutes registers routes related to accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, ledgerService portssvc.LedgerSvcFacade) {
	h := newAccountHandler(accountService, ledgerService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/all", middleware.RequireAdmin(), h.listAllAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.POST("/:id/top-up", h.topUp)
		accounts.PUT("/:id/block", middleware.RequireAdmin(), h.blockAccount)
		accounts.PUT("/:id/unblock", middleware.RequireAdmin(), h.unblockAccount)
		accounts.DELETE("/:id", h.deleteAccount)
	}
}

// createAccount godoc
// @Summary Open an account
// @Description Opens an account with a zero balance. Admins may open one for another client.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest false "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Accounts are owned by another service"
// @Failure 409 {object} map[string]string "Client already has an account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.CreateAccountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "request format", err)
			return
		}
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err, "create account")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Account created", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// listAccounts godoc
// @Summary List the caller's accounts
// @Description Returns the caller's accounts, pulling them from the owning service when they are replicated.
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Owning service unavailable"
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	resp, err := h.accountService.ListAccounts(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "list accounts")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listAllAccounts godoc
// @Summary Snapshot of all accounts
// @Description Admin only. Pages through the local accounts; used by other services to replicate.
// @Tags accounts
// @Produce  json
// @Param   limit query int false "Page size" default(100)
// @Param   offset query int false "Offset" default(0)
// @Param   includeDeleted query bool false "Include soft-deleted accounts"
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /accounts/all [get]
func (h *accountHandler) listAllAccounts(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "query parameters", err)
		return
	}
	accounts, err := h.accountService.ListAllAccounts(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "list accounts")
		return
	}
	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)})
}

// getAccount godoc
// @Summary Get an account by ID
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{id} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	account, err := h.accountService.GetAccount(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// topUp godoc
// @Summary Top up an account
// @Description Adds a positive amount to one of the caller's accounts and records a TOP_UP payment.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   body body dto.TopUpRequest true "Amount"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Amount must be positive"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/top-up [post]
func (h *accountHandler) topUp(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request format", err)
		return
	}
	account, err := h.ledgerService.TopUp(c.Request.Context(), caller, c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err, "top up account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// blockAccount godoc
// @Summary Block an account
// @Description Admin only. A blocked account cannot send transfers.
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /accounts/{id}/block [put]
func (h *accountHandler) blockAccount(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	account, err := h.accountService.BlockAccount(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "block account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// unblockAccount godoc
// @Summary Unblock an account
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /accounts/{id}/unblock [put]
func (h *accountHandler) unblockAccount(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	account, err := h.accountService.UnblockAccount(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "unblock account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deleteAccount godoc
// @Summary Delete an account
// @Description Soft-deletes an account. Its payments stay in the ledger.
// @Tags accounts
// @Param   id path string true "Account ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{id} [delete]
func (h *accountHandler) deleteAccount(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	if err := h.accountService.DeleteAccount(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "delete account")
		return
	}
	c.Status(http.StatusNoContent)
}
