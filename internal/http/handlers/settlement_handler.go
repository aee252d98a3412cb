package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/payment"
	"github.com/rewearhq/rewear-backend/internal/service"
)

// SettlementHandler обслуживает двухфазный расчёт по сделке.
type SettlementHandler struct {
	settlements *service.SettlementService
}

func NewSettlementHandler(settlements *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// Reserve POST /settlements/reserve
func (h *SettlementHandler) Reserve(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		ProposalID string `json:"proposal_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposal_id обязателен"})
		return
	}

	proposalID, err := uuid.Parse(req.ProposalID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный proposal_id"})
		return
	}

	settlement, err := h.settlements.Reserve(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, settlement)
}

// Commit POST /settlements/:id/commit
func (h *SettlementHandler) Commit(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	settlementID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		DeliveryAddress string `json:"delivery_address" binding:"required"`
		Card            struct {
			Number     string `json:"number"`
			Expiry     string `json:"expiry"`
			CVV        string `json:"cvv"`
			HolderName string `json:"holder_name"`
		} `json:"card"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_address обязателен"})
		return
	}

	settlement, err := h.settlements.Commit(c.Request.Context(), userID, settlementID, req.DeliveryAddress, payment.Card{
		Number:     req.Card.Number,
		Expiry:     req.Card.Expiry,
		CVV:        req.Card.CVV,
		HolderName: req.Card.HolderName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settlement)
}

// Abandon POST /settlements/:id/abandon
func (h *SettlementHandler) Abandon(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	settlementID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.settlements.Abandon(c.Request.Context(), userID, settlementID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
