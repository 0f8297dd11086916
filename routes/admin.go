package routes

import (
	orderControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/order"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupAdminRoutes registers the "/admin/*" endpoints behind the API key.
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		orders := adminGroup.Group("/orders")
		{
			orders.GET("/", orderControllers.ListOrdersHandler(db))
			orders.GET("/stats", orderControllers.OrderStatsHandler(db))
			orders.GET("/export", orderControllers.ExportOrdersToExcel(db))
			orders.GET("/ws", orderControllers.OrderWebSocketHandler)
			orders.POST("/expire-stale", orderControllers.ExpireStaleOrdersHandler(db, logger))
			orders.GET("/:orderNumber", orderControllers.GetOrderHandler(db))
			orders.PUT("/:orderNumber/status", orderControllers.UpdateOrderStatusHandler(db, logger))
			orders.PUT("/:orderNumber/tracking", orderControllers.UpdateTrackingHandler(db, logger))
			orders.POST("/:orderNumber/verify", orderControllers.ManualVerifyHandler(db, gateway, logger))
			orders.POST("/:orderNumber/refund", orderControllers.RefundOrderHandler(db, gateway, logger))
		}
	}
}
