package checkoutControllers

import (
	"errors"
	"net/http"
	"os"

	cartControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/cart"
	orderControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/order"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/dbx"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userIDVal.(string), true
}

// paymentInstructions are the static details handed to bank-transfer and
// cash-on-delivery customers.
func paymentInstructions(method models.PaymentMethod) gin.H {
	switch method {
	case models.PaymentMethodBankTransfer:
		return gin.H{
			"bank_name":      os.Getenv("BANK_TRANSFER_BANK_NAME"),
			"account_name":   os.Getenv("BANK_TRANSFER_ACCOUNT_NAME"),
			"account_number": os.Getenv("BANK_TRANSFER_ACCOUNT_NUMBER"),
			"note":           "Use your order number as the transfer reference.",
		}
	case models.PaymentMethodCashOnDelivery:
		return gin.H{"note": "Payment is collected in cash when your order is delivered."}
	default:
		return nil
	}
}

// GET /user/checkout/summary
// Validates every line is still orderable and returns the computed totals.
func SummaryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		snap, err := cartControllers.TakeSnapshot(db, userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if len(snap.Items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			return
		}
		for _, item := range snap.Items {
			if !item.Orderable {
				c.JSON(http.StatusConflict, gin.H{
					"error":  "cart contains an item that cannot be ordered",
					"item":   item.Name,
					"reason": item.Reason,
				})
				return
			}
		}
		c.JSON(http.StatusOK, snap)
	}
}

// POST /user/checkout
// Creates the order. For bank transfer and cash on delivery this is the
// terminal checkout step; for the gateway the order stays pending until
// payment initialization succeeds.
func SubmitHandler(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var input CheckoutInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		order, err := CreateOrder(db, userID, input)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		logger.Info("order created",
			zap.String("order_number", order.OrderNumber),
			zap.String("user_id", userID),
			zap.String("payment_method", string(order.PaymentMethod)),
			zap.String("total", order.Total.String()),
		)
		orderControllers.BroadcastNewOrder(*order)

		resp := gin.H{"order": order}
		if instructions := paymentInstructions(order.PaymentMethod); instructions != nil {
			resp["payment_instructions"] = instructions
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// POST /user/checkout/:orderNumber/pay
// Initializes the hosted-page gateway payment for a pending gateway order.
// Replays the stored authorization URL instead of creating a second charge
// when called twice for the same order.
func InitializePaymentHandler(db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		orderNumber := c.Param("orderNumber")

		var order models.Order
		if err := db.Where("order_number = ? AND user_id = ?", orderNumber, userID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			apperr.Respond(c, err)
			return
		}
		if order.PaymentMethod != models.PaymentMethodGateway {
			c.JSON(http.StatusConflict, gin.H{"error": "order is not a gateway payment"})
			return
		}
		if order.PaymentStatus != models.PaymentStatusPending {
			c.JSON(http.StatusConflict, gin.H{"error": "order payment is already " + string(order.PaymentStatus)})
			return
		}

		// Dedupe by reference under a row lock: concurrent calls serialize
		// on the payment row, so only the first reaches the gateway and the
		// rest replay its stored authorization URL.
		var authorizationURL, accessCode string
		err := db.Transaction(func(tx *gorm.DB) error {
			var payment models.Payment
			if err := dbx.LockForUpdate(tx).
				Where("transaction_reference = ?", order.OrderNumber).First(&payment).Error; err != nil {
				return err
			}
			if payment.AuthorizationURL != "" {
				authorizationURL, accessCode = payment.AuthorizationURL, payment.AccessCode
				return nil
			}

			result, err := gateway.Initialize(c.Request.Context(), order.OrderNumber,
				paystack.ToMinorUnits(order.Total), order.CustomerEmail, os.Getenv("PAYSTACK_CALLBACK_URL"))
			if err != nil {
				return err
			}
			if err := tx.Model(&payment).Updates(map[string]any{
				"provider_reference": result.ProviderReference,
				"access_code":        result.AccessCode,
				"authorization_url":  result.AuthorizationURL,
			}).Error; err != nil {
				return err
			}
			authorizationURL, accessCode = result.AuthorizationURL, result.AccessCode
			return nil
		})
		if err != nil {
			// The order stays pending and stock stays reserved; the client
			// may retry initialization.
			logger.Warn("gateway initialization failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
			apperr.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"authorization_url": authorizationURL,
			"access_code":       accessCode,
			"reference":         order.OrderNumber,
		})
	}
}
