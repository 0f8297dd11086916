package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
	PaymentRecordRefunded  PaymentRecordStatus = "refunded"
)

// Payment tracks a single charge attempt for an order. TransactionReference
// is our order number, sent to the gateway as its reference so that both the
// redirect verification and the webhook can find this row again.
type Payment struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	OrderID              uint                `gorm:"index;not null" json:"order_id"`
	Amount               decimal.Decimal     `gorm:"type:numeric(12,2)" json:"amount"`
	Method               PaymentMethod       `gorm:"type:VARCHAR(20)" json:"method"`
	Status               PaymentRecordStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	TransactionReference string              `gorm:"uniqueIndex;not null" json:"transaction_reference"`
	ProviderReference    string              `json:"provider_reference"`
	AccessCode           string              `json:"-"`
	AuthorizationURL     string              `json:"-"`
	Channel              string              `json:"channel"`
	RawPayload           string              `gorm:"type:text" json:"-"`
	FailureReason        string              `json:"failure_reason,omitempty"`
	PaidAt               *time.Time          `json:"paid_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}
