package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/service"
)

// ExchangeHandler обслуживает предложения обмена и покупки.
type ExchangeHandler struct {
	negotiations *service.NegotiationService
}

func NewExchangeHandler(negotiations *service.NegotiationService) *ExchangeHandler {
	return &ExchangeHandler{negotiations: negotiations}
}

// CreateSwap POST /proposals/swap
func (h *ExchangeHandler) CreateSwap(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		RequestedItemID string `json:"requested_item_id" binding:"required"`
		OfferedItemID   string `json:"offered_item_id" binding:"required"`
		Message         string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requested_item_id и offered_item_id обязательны"})
		return
	}

	requestedID, err := uuid.Parse(req.RequestedItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный requested_item_id"})
		return
	}
	offeredID, err := uuid.Parse(req.OfferedItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный offered_item_id"})
		return
	}

	proposal, err := h.negotiations.CreateSwapProposal(c.Request.Context(), userID, requestedID, offeredID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// CreateBuy POST /proposals/buy
func (h *ExchangeHandler) CreateBuy(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id обязателен"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный item_id"})
		return
	}

	proposal, err := h.negotiations.CreateBuyProposal(c.Request.Context(), userID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// Respond POST /proposals/:id/respond
func (h *ExchangeHandler) Respond(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле accept обязательно"})
		return
	}

	proposal, err := h.negotiations.RespondToSwapProposal(c.Request.Context(), userID, proposalID, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Get GET /proposals/:id
func (h *ExchangeHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	proposalID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	proposal, err := h.negotiations.GetProposal(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// ListIncoming GET /proposals/incoming
func (h *ExchangeHandler) ListIncoming(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	proposals, err := h.negotiations.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// ListOutgoing GET /proposals/outgoing
func (h *ExchangeHandler) ListOutgoing(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	proposals, err := h.negotiations.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
