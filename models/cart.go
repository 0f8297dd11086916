package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrAmbiguousLineRef = errors.New("line item must reference exactly one of product or service variant")

type Cart struct {
	CartID    uint            `gorm:"primaryKey" json:"cart_id"`
	UserID    string          `gorm:"uniqueIndex" json:"user_id"` // Enforces ONE cart per user
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartItem references exactly one purchasable thing: a physical product or a
// service variant. UnitPrice is captured at add time and not re-read from the
// catalog afterwards.
type CartItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CartID           uint            `gorm:"index" json:"cart_id"` // Faster queries
	ProductID        *uint           `gorm:"index;check:chk_cart_item_ref,(product_id IS NULL) <> (service_variant_id IS NULL)" json:"product_id,omitempty"`
	ServiceVariantID *uint           `gorm:"index" json:"service_variant_id,omitempty"`
	Name             string          `json:"name"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	Quantity         int             `json:"quantity"`
	AddedAt          time.Time       `json:"added_at"`
}

// BeforeSave rejects writes that violate the exactly-one-reference invariant
// before they ever reach the database.
func (ci *CartItem) BeforeSave(*gorm.DB) error {
	if (ci.ProductID == nil) == (ci.ServiceVariantID == nil) {
		return ErrAmbiguousLineRef
	}
	return nil
}

// LineTotal is quantity times the captured unit price.
func (ci *CartItem) LineTotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}
