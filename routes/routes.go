package routes

import (
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes is the single entry-point that wires up the user, admin and
// webhook route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) {
	// 1. User routes (JWT-protected)
	SetupUserRoutes(r, db, gateway, logger)

	// 2. Admin routes (API-key-protected)
	SetupAdminRoutes(r, db, gateway, logger)

	// 3. Gateway webhook (signature-protected, no auth)
	SetupWebhookRoutes(r, db, logger)
}
