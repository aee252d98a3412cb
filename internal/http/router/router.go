package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewearhq/rewear-backend/internal/config"
	"github.com/rewearhq/rewear-backend/internal/http/handlers"
	"github.com/rewearhq/rewear-backend/internal/http/middleware"
	"github.com/rewearhq/rewear-backend/internal/service"
)

// Handlers собирает все хэндлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Items        *handlers.ItemHandler
	Exchanges    *handlers.ExchangeHandler
	Settlements  *handlers.SettlementHandler
	Admin        *handlers.AdminHandler
	Notification *handlers.NotificationHandler
	Media        *handlers.MediaHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
}

// SetupRouter конфигурирует все маршруты приложения.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// Публичные маршруты
	api.GET("/items", h.Items.List)
	api.GET("/items/:id", middleware.UUIDValidator("id"), h.Items.Get)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", h.Auth.Me)

		protected.POST("/items", h.Items.Create)
		protected.GET("/items/my", h.Items.MyItems)

		protected.POST("/proposals/swap", h.Exchanges.CreateSwap)
		protected.POST("/proposals/buy", h.Exchanges.CreateBuy)
		protected.GET("/proposals/incoming", h.Exchanges.ListIncoming)
		protected.GET("/proposals/outgoing", h.Exchanges.ListOutgoing)
		protected.GET("/proposals/:id", middleware.UUIDValidator("id"), h.Exchanges.Get)
		protected.POST("/proposals/:id/respond", middleware.UUIDValidator("id"), h.Exchanges.Respond)

		protected.POST("/settlements/reserve", h.Settlements.Reserve)
		protected.POST("/settlements/:id/commit", middleware.UUIDValidator("id"), h.Settlements.Commit)
		protected.POST("/settlements/:id/abandon", middleware.UUIDValidator("id"), h.Settlements.Abandon)

		protected.GET("/notifications", h.Notification.List)
		protected.GET("/notifications/unread", h.Notification.UnreadCount)
		protected.POST("/notifications/read-all", h.Notification.MarkAllRead)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkRead)

		protected.POST("/media/photos", h.Media.UploadPhoto)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), h.Media.DeleteMedia)
	}

	// Админка
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.GET("/items/pending", h.Admin.PendingItems)
		admin.POST("/items/:id/status", middleware.UUIDValidator("id"), h.Admin.ModerateItem)
		admin.GET("/items/:id/scan", middleware.UUIDValidator("id"), h.Admin.ScanItem)
		admin.GET("/users", h.Admin.ListUsers)
		admin.POST("/users/:id/role", middleware.UUIDValidator("id"), h.Admin.SetUserRole)
		admin.GET("/stats", h.Admin.Stats)
	}

	return r
}
