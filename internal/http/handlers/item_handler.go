package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/service"
)

// ItemHandler обслуживает каталог вещей.
type ItemHandler struct {
	catalog *service.CatalogService
}

func NewItemHandler(catalog *service.CatalogService) *ItemHandler {
	return &ItemHandler{catalog: catalog}
}

// Create POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Title        string   `json:"title" binding:"required"`
		Description  string   `json:"description"`
		Category     string   `json:"category" binding:"required"`
		Size         string   `json:"size" binding:"required"`
		Condition    string   `json:"condition" binding:"required"`
		Brand        string   `json:"brand"`
		Color        string   `json:"color"`
		Tags         []string `json:"tags"`
		ImageURLs    []string `json:"image_urls"`
		PointsValue  int      `json:"points_value" binding:"required"`
		Price        *int     `json:"price"`
		DeliveryMode string   `json:"delivery_mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	item, err := h.catalog.CreateItem(c.Request.Context(), userID, service.CreateItemInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Size:         req.Size,
		Condition:    req.Condition,
		Brand:        req.Brand,
		Color:        req.Color,
		Tags:         req.Tags,
		ImageURLs:    req.ImageURLs,
		PointsValue:  req.PointsValue,
		Price:        req.Price,
		DeliveryMode: req.DeliveryMode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// List GET /items
func (h *ItemHandler) List(c *gin.Context) {
	filter := models.ItemFilter{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Size:      c.Query("size"),
		Condition: c.Query("condition"),
		Limit:     parseIntQuery(c, "limit", 50),
		Offset:    parseIntQuery(c, "offset", 0),
	}

	items, err := h.catalog.ListItems(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	item, err := h.catalog.GetItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// MyItems GET /items/my
func (h *ItemHandler) MyItems(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	items, err := h.catalog.MyItems(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
