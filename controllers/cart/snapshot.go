package cartControllers

import (
	"errors"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Snapshot is the read-only cart view returned after every mutation. Lines
// whose catalog reference has since vanished or gone inactive are surfaced
// with Orderable=false instead of being dropped, so checkout can reject with
// a specific reason.
type Snapshot struct {
	CartID   uint            `json:"cart_id"`
	Items    []SnapshotItem  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type SnapshotItem struct {
	ID               uint            `json:"id"`
	ProductID        *uint           `json:"product_id,omitempty"`
	ServiceVariantID *uint           `json:"service_variant_id,omitempty"`
	Name             string          `json:"name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
	Orderable        bool            `json:"orderable"`
	Reason           string          `json:"reason,omitempty"`
	AvailableStock   *int            `json:"available_stock,omitempty"`
}

// TakeSnapshot joins every line to its live referent.
func TakeSnapshot(db *gorm.DB, userID string) (*Snapshot, error) {
	cart, err := GetOrCreateCart(db, userID)
	if err != nil {
		return nil, err
	}
	var items []models.CartItem
	if err := db.Where("cart_id = ?", cart.CartID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}

	snap := &Snapshot{
		CartID:   cart.CartID,
		Items:    make([]SnapshotItem, 0, len(items)),
		Subtotal: cart.Subtotal,
		Total:    cart.Total,
	}
	for _, item := range items {
		view := SnapshotItem{
			ID:               item.ID,
			ProductID:        item.ProductID,
			ServiceVariantID: item.ServiceVariantID,
			Name:             item.Name,
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
			LineTotal:        item.LineTotal(),
			Orderable:        true,
		}
		resolveReferent(db, &view)
		snap.Items = append(snap.Items, view)
	}
	return snap, nil
}

func resolveReferent(db *gorm.DB, view *SnapshotItem) {
	if view.ProductID != nil {
		var product models.Product
		err := db.First(&product, "id = ?", *view.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			view.Orderable = false
			view.Reason = "product no longer exists"
		case err == nil && !product.Active:
			view.Orderable = false
			view.Reason = "product is no longer available"
		case err == nil:
			view.AvailableStock = &product.Stock
			if product.Stock < view.Quantity {
				view.Orderable = false
				view.Reason = "insufficient stock"
			}
		default:
			view.Orderable = false
			view.Reason = "product could not be resolved"
		}
		return
	}

	var variant models.ServiceVariant
	err := db.First(&variant, "id = ?", *view.ServiceVariantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		view.Orderable = false
		view.Reason = "service variant no longer exists"
		return
	}
	if err != nil {
		view.Orderable = false
		view.Reason = "service variant could not be resolved"
		return
	}
	var service models.Service
	if err := db.First(&service, "id = ?", variant.ServiceID).Error; err != nil || !service.Active || !variant.Active {
		view.Orderable = false
		view.Reason = "service is no longer available"
	}
}
