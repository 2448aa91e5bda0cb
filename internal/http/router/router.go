package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrowbid-backend/internal/config"
	"github.com/ignatzorin/escrowbid-backend/internal/http/handlers"
	"github.com/ignatzorin/escrowbid-backend/internal/http/middleware"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

func SetupRouter(
	cfg *config.Config,
	tokens middleware.AccessTokenParser,
	quotationHandler *handlers.QuotationHandler,
	bidHandler *handlers.BidHandler,
	disputeHandler *handlers.DisputeHandler,
	settingsHandler *handlers.SettingsHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// WebSocket аутентифицируется токеном из query.
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	operator := middleware.RequireRole(models.RoleOperator)
	requester := middleware.RequireRole(models.RoleRequester)
	supplier := middleware.RequireRole(models.RoleSupplier)
	bidRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	quotations := protected.Group("/quotations")
	{
		quotations.POST("", requester, quotationHandler.CreateQuotation)
		quotations.GET("", operator, quotationHandler.ListQuotations)
		quotations.GET("/:id", middleware.UUIDValidator("id"), quotationHandler.GetQuotation)
		quotations.POST("/:id/bids", supplier, middleware.UUIDValidator("id"), bidRateLimit, bidHandler.SubmitBid)
		quotations.POST("/:id/award", operator, middleware.UUIDValidator("id"), quotationHandler.AwardBid)
		quotations.POST("/:id/close", operator, middleware.UUIDValidator("id"), quotationHandler.CloseQuotation)
	}

	bids := protected.Group("/bids/:id", middleware.UUIDValidator("id"))
	{
		bids.GET("", bidHandler.GetBid)
		bids.POST("/payment", requester, bidHandler.CapturePayment)
		bids.POST("/disburse", operator, bidHandler.DisburseFunds)
		bids.POST("/disputes", requester, disputeHandler.FileDispute)
	}

	disputes := protected.Group("/disputes", operator)
	{
		disputes.GET("", disputeHandler.ListDisputes)
		disputes.GET("/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
		disputes.PUT("/:id/status", middleware.UUIDValidator("id"), disputeHandler.UpdateStatus)
	}

	settings := protected.Group("/settings", operator)
	{
		settings.GET("/auction", settingsHandler.GetAuction)
		settings.PUT("/auction", settingsHandler.UpdateAuction)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread/count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	return r
}
