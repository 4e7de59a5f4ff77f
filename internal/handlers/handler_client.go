package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

type clientHandler struct {
	identityService portssvc.IdentitySvcFacade
}

// RegisterClientRoutes registers routes for the local client projection.
func RegisterClientRoutes(rg *gin.RouterGroup, identityService portssvc.IdentitySvcFacade) {
	h := &clientHandler{identityService: identityService}

	clients := rg.Group("/clients")
	{
		clients.GET("/me", h.getMe)
		clients.GET("", middleware.RequireAdmin(), h.listClients)
		clients.DELETE("/:id", middleware.RequireAdmin(), h.deleteClient)
	}
}

// getMe godoc
// @Summary Get the caller's client record
// @Tags clients
// @Produce  json
// @Success 200 {object} dto.ClientResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /clients/me [get]
func (h *clientHandler) getMe(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	client, err := h.identityService.GetClient(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "retrieve client")
		return
	}
	c.JSON(http.StatusOK, dto.ToClientResponse(client))
}

// listClients godoc
// @Summary List clients
// @Tags clients
// @Produce  json
// @Param   limit query int false "Page size" default(100)
// @Param   offset query int false "Offset" default(0)
// @Param   includeDeleted query bool false "Include deleted clients"
// @Success 200 {object} dto.ListClientsResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /clients [get]
func (h *clientHandler) listClients(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "query parameters", err)
		return
	}
	clients, err := h.identityService.ListClients(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "list clients")
		return
	}
	c.JSON(http.StatusOK, dto.ToListClientResponse(clients))
}

// deleteClient godoc
// @Summary Delete a client
// @Description Soft-deletes the local client row; the client can no longer authenticate here.
// @Tags clients
// @Param   id path string true "Client ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Client not found"
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *clientHandler) deleteClient(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	if err := h.identityService.DeleteClient(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "delete client")
		return
	}
	c.Status(http.StatusNoContent)
}
