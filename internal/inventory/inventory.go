// Package inventory owns every mutation of product stock counters. Stock is
// the only hot shared resource in the system, so all decrements and
// increments go through these two operations, always inside a transaction
// supplied by the caller.
package inventory

import (
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/dbx"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"gorm.io/gorm"
)

// Line is the minimal view of an order/cart line the guard needs. Lines that
// reference a service variant are no-ops for both operations.
type Line struct {
	ProductID *uint
	Name      string
	Quantity  int
}

// ReserveForOrder re-validates current stock for every physical line and
// decrements it, holding a row lock on each product so the check and the
// decrement are atomic. Any oversold line fails the whole reservation,
// which aborts the surrounding order-creation transaction.
func ReserveForOrder(tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		var product models.Product
		if err := dbx.LockForUpdate(tx).
			First(&product, "id = ?", *line.ProductID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("product %q no longer exists", line.Name)
			}
			return err
		}
		if product.Stock < line.Quantity {
			return apperr.Conflict("insufficient stock for %q: requested %d, available %d",
				product.Name, line.Quantity, product.Stock)
		}
		if err := tx.Model(&product).
			Update("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Release increments stock back by the originally ordered quantity for each
// physical line. Callers must guarantee at most one release per order; the
// order lifecycle does this via the stock-restored timestamp on the order row.
func Release(tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		// Unscoped so stock on a since-soft-deleted product is still restored
		// for the audit trail.
		if err := tx.Unscoped().Model(&models.Product{}).
			Where("id = ?", *line.ProductID).
			Update("stock", gorm.Expr("stock + ?", line.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

// OrderLines adapts order items to guard lines.
func OrderLines(items []models.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	return lines
}

// CartLines adapts cart items to guard lines.
func CartLines(items []models.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	return lines
}
