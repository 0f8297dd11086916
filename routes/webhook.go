package routes

import (
	paymentControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/payment"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupWebhookRoutes registers the gateway callback endpoint. It is public
// but signature-verified; the middleware rejects forgeries before any state
// is touched.
func SetupWebhookRoutes(r *gin.Engine, db *gorm.DB, logger *zap.Logger) {
	r.POST("/payments/webhook", middleware.VerifyWebhookSignature(), paymentControllers.WebhookHandler(db, logger))
}
