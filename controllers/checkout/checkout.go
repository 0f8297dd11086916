package checkoutControllers

import (
	"errors"
	"strings"
	"time"

	cartControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/cart"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/inventory"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderNumberAttempts bounds regeneration when the unique index reports a
// collision. The timestamp+random scheme makes more than one retry unheard of.
const orderNumberAttempts = 3

type CheckoutInput struct {
	ShippingAddress models.Address       `json:"shipping_address"`
	BillingAddress  *models.Address      `json:"billing_address"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" binding:"required"`
	Email           string               `json:"email" binding:"required,email"`
	Notes           string               `json:"notes"`
}

// generateOrderNumber produces the human-facing order number, also used as
// the gateway transaction reference. Example: 20250908130500-7F3A91C2.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return time.Now().Format("20060102150405") + "-" + suffix
}

func validateInput(input *CheckoutInput) error {
	switch input.PaymentMethod {
	case models.PaymentMethodGateway, models.PaymentMethodBankTransfer, models.PaymentMethodCashOnDelivery:
	default:
		return apperr.Validation("invalid payment method %q", input.PaymentMethod)
	}
	if strings.TrimSpace(input.ShippingAddress.Street) == "" || strings.TrimSpace(input.ShippingAddress.City) == "" {
		return apperr.Validation("shipping address requires street and city")
	}
	if strings.TrimSpace(input.ShippingAddress.Phone) == "" {
		return apperr.Validation("shipping address requires a contact phone")
	}
	if input.BillingAddress == nil {
		// Billing defaults to shipping when omitted.
		addr := input.ShippingAddress
		input.BillingAddress = &addr
	}
	return nil
}

// CreateOrder snapshots the user's cart into an immutable order. One
// transaction covers stock reservation, order + line + payment inserts and
// cart clearing; any failure rolls the whole thing back. A duplicate order
// number regenerates and retries instead of failing the checkout.
func CreateOrder(db *gorm.DB, userID string, input CheckoutInput) (*models.Order, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, err := createOrderOnce(db, userID, input, generateOrderNumber())
		if err == nil {
			return order, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, apperr.Conflict("could not allocate a unique order number: %v", lastErr)
}

func createOrderOnce(db *gorm.DB, userID string, input CheckoutInput, orderNumber string) (*models.Order, error) {
	var order models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := cartControllers.GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.CartID).Order("id").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.Validation("cart is empty")
		}

		orderItems, subtotal, err := freezeLines(tx, items)
		if err != nil {
			return err
		}
		if !subtotal.IsPositive() {
			return apperr.Validation("order total must be greater than zero")
		}

		// Stock re-check and decrement under row locks, in this same
		// transaction. Closes the race against concurrent checkouts.
		if err := inventory.ReserveForOrder(tx, inventory.CartLines(items)); err != nil {
			return err
		}

		order = models.Order{
			OrderNumber:     orderNumber,
			UserID:          userID,
			Items:           orderItems,
			Subtotal:        subtotal,
			Total:           subtotal,
			CustomerEmail:   input.Email,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  *input.BillingAddress,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   models.PaymentStatusPending,
			Status:          models.OrderStatusPending,
			Notes:           input.Notes,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		payment := models.Payment{
			OrderID:              order.ID,
			Amount:               order.Total,
			Method:               input.PaymentMethod,
			Status:               models.PaymentRecordPending,
			TransactionReference: order.OrderNumber,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		// Cart lines are destroyed once the order exists; the cart row stays.
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Cart{}).Where("cart_id = ?", cart.CartID).
			Updates(map[string]any{"subtotal": decimal.Zero, "total": decimal.Zero}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// freezeLines copies cart lines into order lines, re-resolving each referent
// so a since-deactivated product or variant aborts the checkout with a clear
// reason rather than being silently dropped.
func freezeLines(tx *gorm.DB, items []models.CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	orderItems := make([]models.OrderItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		if item.ProductID != nil {
			var product models.Product
			if err := tx.First(&product, "id = ?", *item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, decimal.Zero, apperr.NotFound("%q is no longer orderable", item.Name)
				}
				return nil, decimal.Zero, err
			}
			if !product.Active {
				return nil, decimal.Zero, apperr.NotFound("%q is no longer orderable", item.Name)
			}
		} else {
			var variant models.ServiceVariant
			if err := tx.First(&variant, "id = ?", *item.ServiceVariantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, decimal.Zero, apperr.NotFound("%q is no longer orderable", item.Name)
				}
				return nil, decimal.Zero, err
			}
			var service models.Service
			if err := tx.First(&service, "id = ?", variant.ServiceID).Error; err != nil || !variant.Active || !service.Active {
				return nil, decimal.Zero, apperr.NotFound("%q is no longer orderable", item.Name)
			}
		}
		orderItems = append(orderItems, models.OrderItem{
			ProductID:        item.ProductID,
			ServiceVariantID: item.ServiceVariantID,
			Name:             item.Name,
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
		})
		subtotal = subtotal.Add(item.LineTotal())
	}
	return orderItems, subtotal, nil
}
