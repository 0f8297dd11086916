package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is a non-physical offering (consultation, installation, design work).
// Customers purchase a specific priced variant, never the service directly.
type Service struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Active      bool             `gorm:"default:true" json:"active"`
	Variants    []ServiceVariant `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"variants"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

type ServiceVariant struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceID uint            `gorm:"index;not null" json:"service_id"`
	Name      string          `gorm:"not null" json:"name"` // e.g. "Standard", "Express"
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Active    bool            `gorm:"default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
