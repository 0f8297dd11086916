package orderControllers

import (
	"net/http"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type statusBucket struct {
	Status  string          `json:"status"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type methodBucket struct {
	PaymentMethod string          `json:"payment_method"`
	Count         int64           `json:"count"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// GET /admin/orders/stats
// Counts and revenue grouped by order status and payment method, honoring
// the same date-range filters as the list endpoint. Revenue only counts
// paid orders.
func OrderStatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var byStatus []statusBucket
		if err := filteredOrders(db, c).
			Select("status, COUNT(*) AS count, COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN total ELSE 0 END), 0) AS revenue").
			Group("status").
			Scan(&byStatus).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var byMethod []methodBucket
		if err := filteredOrders(db, c).
			Select("payment_method, COUNT(*) AS count, COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN total ELSE 0 END), 0) AS revenue").
			Group("payment_method").
			Scan(&byMethod).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var totalOrders int64
		if err := filteredOrders(db, c).Count(&totalOrders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var totalRevenue decimal.Decimal
		if err := filteredOrders(db, c).
			Where("payment_status = ?", models.PaymentStatusPaid).
			Select("COALESCE(SUM(total), 0)").
			Scan(&totalRevenue).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_orders":      totalOrders,
			"total_revenue":     totalRevenue,
			"by_status":         byStatus,
			"by_payment_method": byMethod,
		})
	}
}
