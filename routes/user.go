package routes

import (
	cartControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/cart"
	catalogControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/catalog"
	checkoutControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/checkout"
	orderControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/order"
	paymentControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/payment"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetCartHandler(db))                    // GET /user/cart
			cartGroup.POST("/", cartControllers.AddItemHandler(db))                   // POST /user/cart
			cartGroup.PUT("/items/:itemID", cartControllers.UpdateItemHandler(db))    // PUT /user/cart/items/:itemID
			cartGroup.DELETE("/items/:itemID", cartControllers.RemoveItemHandler(db)) // DELETE /user/cart/items/:itemID
			cartGroup.DELETE("/", cartControllers.ClearCartHandler(db))               // DELETE /user/cart
		}

		// ──────────────── Checkout ────────────────
		checkoutGroup := userGroup.Group("/checkout")
		{
			checkoutGroup.GET("/summary", checkoutControllers.SummaryHandler(db))
			checkoutGroup.POST("/", checkoutControllers.SubmitHandler(db, logger))
			checkoutGroup.POST("/:orderNumber/pay", checkoutControllers.InitializePaymentHandler(db, gateway, logger))
		}

		// ──────────────── Payments ────────────────
		userGroup.GET("/payments/verify/:reference", paymentControllers.VerifyHandler(db, gateway, logger))

		// ──────────────── Orders ────────────────
		ordersGroup := userGroup.Group("/orders")
		{
			ordersGroup.GET("/", orderControllers.ListUserOrdersHandler(db))
			ordersGroup.GET("/:orderNumber", orderControllers.GetUserOrderHandler(db))
			ordersGroup.POST("/:orderNumber/cancel", orderControllers.CancelUserOrderHandler(db, logger))
		}

		// ──────────────── Browse Catalog ────────────────
		userGroup.GET("/products", catalogControllers.GetProducts(db))        // GET /user/products
		userGroup.GET("/products/:id", catalogControllers.GetProductByID(db)) // GET /user/products/:id
		userGroup.GET("/services", catalogControllers.GetServices(db))        // GET /user/services
	}
}
