package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

type creditCardHandler struct {
	cardService portssvc.CreditCardSvcFacade
}

// RegisterCreditCardRoutes registers card CRUD routes.
func RegisterCreditCardRoutes(rg *gin.RouterGroup, cardService portssvc.CreditCardSvcFacade) {
	h := &creditCardHandler{cardService: cardService}

	cards := rg.Group("/credit-cards")
	{
		cards.POST("", h.createCard)
		cards.GET("", h.listCards)
		cards.GET("/all", middleware.RequireAdmin(), h.listAllCards)
		cards.PUT("/:id", h.updateCard)
		cards.DELETE("/:id", h.deleteCard)
	}
}

// createCard godoc
// @Summary Register a card
// @Description Binds a card to one of the caller's accounts. The CVV is stored hashed and never returned.
// @Tags credit-cards
// @Accept  json
// @Produce  json
// @Param   card body dto.CreateCreditCardRequest true "Card details"
// @Success 201 {object} dto.CreditCardResponse
// @Failure 400 {object} map[string]string "Invalid card details"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /credit-cards [post]
func (h *creditCardHandler) createCard(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.CreateCreditCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request format", err)
		return
	}
	card, err := h.cardService.CreateCard(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err, "create card")
		return
	}
	c.JSON(http.StatusCreated, dto.ToCreditCardResponse(card, false))
}

// listCards godoc
// @Summary List the caller's cards
// @Description Card numbers are masked.
// @Tags credit-cards
// @Produce  json
// @Success 200 {object} dto.ListCreditCardsResponse
// @Security BearerAuth
// @Router /credit-cards [get]
func (h *creditCardHandler) listCards(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	resp, err := h.cardService.ListCards(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "list cards")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listAllCards godoc
// @Summary Snapshot of all cards
// @Description Admin only. Numbers are returned in full for replication.
// @Tags credit-cards
// @Produce  json
// @Param   limit query int false "Page size" default(100)
// @Param   offset query int false "Offset" default(0)
// @Param   includeDeleted query bool false "Include soft-deleted cards"
// @Success 200 {object} dto.ListCreditCardsResponse
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /credit-cards/all [get]
func (h *creditCardHandler) listAllCards(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "query parameters", err)
		return
	}
	cards, err := h.cardService.ListAllCards(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "list cards")
		return
	}
	c.JSON(http.StatusOK, dto.ListCreditCardsResponse{CreditCards: dto.ToCreditCardResponses(cards, true)})
}

// updateCard godoc
// @Summary Update a card
// @Tags credit-cards
// @Accept  json
// @Produce  json
// @Param   id path string true "Card ID"
// @Param   card body dto.UpdateCreditCardRequest true "Fields to change"
// @Success 200 {object} dto.CreditCardResponse
// @Failure 404 {object} map[string]string "Card not found"
// @Security BearerAuth
// @Router /credit-cards/{id} [put]
func (h *creditCardHandler) updateCard(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req dto.UpdateCreditCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request format", err)
		return
	}
	card, err := h.cardService.UpdateCard(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "update card")
		return
	}
	c.JSON(http.StatusOK, dto.ToCreditCardResponse(card, false))
}

// deleteCard godoc
// @Summary Delete a card
// @Tags credit-cards
// @Param   id path string true "Card ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Card not found"
// @Security BearerAuth
// @Router /credit-cards/{id} [delete]
func (h *creditCardHandler) deleteCard(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	if err := h.cardService.DeleteCard(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "delete card")
		return
	}
	c.Status(http.StatusNoContent)
}
