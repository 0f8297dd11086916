package cartControllers

import (
	"errors"
	"time"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AddItemInput references exactly one of ProductID / ServiceVariantID.
type AddItemInput struct {
	ProductID        *uint `json:"product_id"`
	ServiceVariantID *uint `json:"service_variant_id"`
	Quantity         int   `json:"quantity" binding:"required,min=1"`
}

// -------- Core Logic --------

// GetOrCreateCart returns the user's cart, creating it on first access.
func GetOrCreateCart(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cart = models.Cart{UserID: userID, Subtotal: decimal.Zero, Total: decimal.Zero}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem resolves the referenced product or service variant, validates it is
// active (and in stock, for products) and merges into an existing line for
// the same reference instead of duplicating it. Line write and total
// recompute share one transaction.
func AddItem(db *gorm.DB, userID string, input AddItemInput) (*Snapshot, error) {
	if (input.ProductID == nil) == (input.ServiceVariantID == nil) {
		return nil, apperr.Validation("exactly one of product_id or service_variant_id is required")
	}
	if input.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var name string
		var unitPrice decimal.Decimal
		var stock *int

		if input.ProductID != nil {
			var product models.Product
			if err := tx.First(&product, "id = ?", *input.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("product not found")
				}
				return err
			}
			if !product.Active {
				return apperr.NotFound("product is no longer available")
			}
			name = product.Name
			unitPrice = product.Price
			stock = &product.Stock
		} else {
			var variant models.ServiceVariant
			if err := tx.First(&variant, "id = ?", *input.ServiceVariantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("service variant not found")
				}
				return err
			}
			var service models.Service
			if err := tx.First(&service, "id = ?", variant.ServiceID).Error; err != nil {
				return apperr.NotFound("service not found")
			}
			if !variant.Active || !service.Active {
				return apperr.NotFound("service variant is no longer available")
			}
			name = service.Name + " - " + variant.Name
			unitPrice = variant.Price
		}

		// Merge with an existing line for the same reference.
		var item models.CartItem
		query := tx.Where("cart_id = ?", cart.CartID)
		if input.ProductID != nil {
			query = query.Where("product_id = ?", *input.ProductID)
		} else {
			query = query.Where("service_variant_id = ?", *input.ServiceVariantID)
		}
		err = query.First(&item).Error

		newQuantity := input.Quantity
		if err == nil {
			newQuantity += item.Quantity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Advisory stock check against the merged quantity; re-validated at
		// order creation under a row lock.
		if stock != nil && newQuantity > *stock {
			return apperr.Conflict("insufficient stock for %q: requested %d, available %d", name, newQuantity, *stock)
		}

		if item.ID == 0 {
			item = models.CartItem{
				CartID:           cart.CartID,
				ProductID:        input.ProductID,
				ServiceVariantID: input.ServiceVariantID,
				Name:             name,
				UnitPrice:        unitPrice,
				Quantity:         newQuantity,
				AddedAt:          time.Now(),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		} else {
			item.Quantity = newQuantity
			item.AddedAt = time.Now()
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		}

		return recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}
	return TakeSnapshot(db, userID)
}

// UpdateItemQuantity sets an existing line to an absolute quantity,
// re-validating product stock.
func UpdateItemQuantity(db *gorm.DB, userID string, itemID uint, quantity int) (*Snapshot, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("id = ? AND cart_id = ?", itemID, cart.CartID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("cart item not found")
			}
			return err
		}

		if item.ProductID != nil {
			var product models.Product
			if err := tx.First(&product, "id = ?", *item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("product no longer exists")
				}
				return err
			}
			if quantity > product.Stock {
				return apperr.Conflict("insufficient stock for %q: requested %d, available %d", product.Name, quantity, product.Stock)
			}
		}

		item.Quantity = quantity
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		return recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}
	return TakeSnapshot(db, userID)
}

// RemoveItem deletes one line and recomputes totals atomically.
func RemoveItem(db *gorm.DB, userID string, itemID uint) (*Snapshot, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		result := tx.Where("id = ? AND cart_id = ?", itemID, cart.CartID).Delete(&models.CartItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("cart item not found")
		}
		return recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}
	return TakeSnapshot(db, userID)
}

// Clear removes every line and zeroes the totals. The cart row itself is
// never deleted.
func Clear(db *gorm.DB, userID string) (*Snapshot, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := GetOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}
	return TakeSnapshot(db, userID)
}

// recomputeTotals derives subtotal/total from the remaining lines and
// persists them on the cart row inside the caller's transaction.
func recomputeTotals(tx *gorm.DB, cartID uint) error {
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return tx.Model(&models.Cart{}).Where("cart_id = ?", cartID).
		Updates(map[string]any{"subtotal": subtotal, "total": subtotal}).Error
}
