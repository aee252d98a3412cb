package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
	"github.com/rewearhq/rewear-backend/internal/service"
)

// AdminHandler обслуживает панель модерации.
type AdminHandler struct {
	moderation *service.ModerationService
	items      service.ItemReader
	notifier   *service.NotificationService
}

func NewAdminHandler(moderation *service.ModerationService, items service.ItemReader, notifier *service.NotificationService) *AdminHandler {
	return &AdminHandler{moderation: moderation, items: items, notifier: notifier}
}

// PendingItems GET /admin/items/pending
func (h *AdminHandler) PendingItems(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	items, err := h.moderation.PendingItems(c.Request.Context(), adminID,
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ModerateItem POST /admin/items/:id/status
func (h *AdminHandler) ModerateItem(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	itemID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле status обязательно"})
		return
	}

	item, err := h.moderation.SetItemStatus(c.Request.Context(), adminID, itemID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.ItemModerated(c.Request.Context(), item)
	}

	c.JSON(http.StatusOK, item)
}

// SetUserRole POST /admin/users/:id/role
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	targetID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле role обязательно"})
		return
	}

	if err := h.moderation.SetUserRole(c.Request.Context(), adminID, targetID, req.Role); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListUsers GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	users, err := h.moderation.ListUsers(c.Request.Context(), adminID,
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Stats GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.moderation.Stats(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ScanItem GET /admin/items/:id/scan
// Рекомендательная проверка текста объявления на подозрительные слова.
func (h *AdminHandler) ScanItem(c *gin.Context) {
	if _, err := currentUserID(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	itemID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	item, err := h.items.GetByID(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			err = apperror.ErrItemNotFound
		}
		respondError(c, err)
		return
	}

	description := ""
	if item.Description != nil {
		description = *item.Description
	}
	matches := h.moderation.ScanListing(item.Title, description)

	c.JSON(http.StatusOK, gin.H{
		"item_id": itemID,
		"matches": matches,
		"flagged": len(matches) > 0,
	})
}
