package orderControllers

import (
	"errors"
	"net/http"
	"time"

	paymentControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/payment"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
}

// filteredOrders applies the admin list filters: status, payment status,
// payment method and a creation date range.
func filteredOrders(db *gorm.DB, c *gin.Context) *gorm.DB {
	query := db.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if method := c.Query("payment_method"); method != "" {
		query = query.Where("payment_method = ?", method)
	}
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("created_at >= ?", ts)
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("created_at < ?", ts.AddDate(0, 0, 1))
		}
	}
	return query
}

// GET /admin/orders
func ListOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := filteredOrders(db, c).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /admin/orders/:orderNumber
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order models.Order
		if err := db.
			Preload("Items").
			Preload("User").
			Where("order_number = ?", c.Param("orderNumber")).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var payment models.Payment
		_ = db.Where("transaction_reference = ?", order.OrderNumber).First(&payment).Error
		c.JSON(http.StatusOK, gin.H{"order": order, "payment": payment})
	}
}

// PUT /admin/orders/:orderNumber/status
func UpdateOrderStatusHandler(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		order, err := UpdateStatus(db, logger, c.Param("orderNumber"), newStatus, req.TrackingNumber)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully", "order": order})
	}
}

// PUT /admin/orders/:orderNumber/tracking
// Sets or corrects the tracking number on an order that has shipped.
func UpdateTrackingHandler(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TrackingNumber string `json:"tracking_number" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		orderNumber := c.Param("orderNumber")

		var order models.Order
		if err := db.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if order.Status != models.OrderStatusShipped {
			c.JSON(http.StatusConflict, gin.H{"error": "tracking number can only be set on a shipped order"})
			return
		}
		if err := db.Model(&order).Update("tracking_number", req.TrackingNumber).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		logger.Info("tracking number updated",
			zap.String("order_number", orderNumber), zap.String("tracking_number", req.TrackingNumber))
		c.JSON(http.StatusOK, gin.H{"message": "Tracking number updated", "order": order})
	}
}

// POST /admin/orders/:orderNumber/verify
// Manual reconciliation. Gateway orders are verified against the provider;
// bank-transfer and cash-on-delivery orders are confirmed directly once the
// money is in hand. Both paths feed the same reconciler.
func ManualVerifyHandler(db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Param("orderNumber")

		var order models.Order
		if err := db.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		outcome := paymentControllers.Outcome{
			Status:  paystack.OutcomeSuccess,
			Channel: "manual",
			PaidAt:  time.Now(),
		}
		if order.PaymentMethod == models.PaymentMethodGateway {
			verified, err := gateway.Verify(c.Request.Context(), orderNumber)
			if err != nil {
				apperr.Respond(c, err)
				return
			}
			outcome = paymentControllers.Outcome{
				Status:      verified.Status,
				AmountMinor: verified.AmountMinor,
				PaidAt:      verified.PaidAt,
				Channel:     verified.Channel,
				Reason:      verified.GatewayResponse,
				Raw:         verified.Raw,
			}
		}

		result, err := paymentControllers.ApplyOutcome(db, logger, orderNumber, outcome)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// POST /admin/orders/:orderNumber/refund
func RefundOrderHandler(db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := Refund(c.Request.Context(), db, gateway, logger, c.Param("orderNumber"))
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order refunded", "order": order})
	}
}

// POST /admin/orders/expire-stale?older_than_hours=24
func ExpireStaleOrdersHandler(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		olderThan := 24 * time.Hour
		if raw := c.Query("older_than_hours"); raw != "" {
			if parsed, err := time.ParseDuration(raw + "h"); err == nil && parsed > 0 {
				olderThan = parsed
			}
		}
		count, err := ExpireStalePendingOrders(db, logger, olderThan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": count})
	}
}
