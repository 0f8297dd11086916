// Package paymentControllers reconciles external payment signals with local
// order and payment state. The browser-redirect verify path and the
// asynchronous webhook both funnel into ApplyOutcome, so the idempotency
// guarantee holds structurally instead of being duplicated per caller.
package paymentControllers

import (
	"errors"
	"time"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/dbx"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome is the normalized payment signal, structurally identical whether
// it came from a verify call or a webhook delivery.
type Outcome struct {
	Status      paystack.OutcomeStatus
	AmountMinor int64
	PaidAt      time.Time
	Channel     string
	Reason      string
	Raw         string
}

// Result reports what reconciliation did. Applied is false for idempotent
// replays, which still count as success to the caller.
type Result struct {
	Order   models.Order   `json:"order"`
	Payment models.Payment `json:"payment"`
	Applied bool           `json:"applied"`
	Message string         `json:"message"`
}

// ApplyOutcome applies one payment signal to the order identified by
// orderNumber. Safe under concurrent invocation for the same order: the
// order row is locked for the duration of the read-then-conditional-write,
// so exactly one of a racing verify call and webhook performs the
// transition and the other observes the already-updated state.
func ApplyOutcome(db *gorm.DB, logger *zap.Logger, orderNumber string, outcome Outcome) (*Result, error) {
	var result Result

	err := db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := dbx.LockForUpdate(tx).
			Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no order found for reference %s", orderNumber)
			}
			return err
		}

		var payment models.Payment
		if err := tx.Where("transaction_reference = ?", orderNumber).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no payment found for reference %s", orderNumber)
			}
			return err
		}

		// A cancelled order is terminal and its stock is already released;
		// a late success must never resurrect it. The money may have moved
		// upstream, so flag it for a manual refund follow-up.
		if order.Status == models.OrderStatusCancelled {
			if outcome.Status == paystack.OutcomeSuccess {
				logger.Error("success signal for cancelled order, needs refund follow-up",
					zap.String("order_number", orderNumber),
					zap.Int64("amount_minor", outcome.AmountMinor))
			}
			result = Result{Order: order, Payment: payment, Applied: false, Message: "order is cancelled"}
			return nil
		}

		// Idempotency guard: a repeated success after the order is paid is a
		// harmless no-op; failed/refunded orders are never transitioned by a
		// late signal, only logged.
		switch order.PaymentStatus {
		case models.PaymentStatusPaid:
			if outcome.Status != paystack.OutcomeSuccess {
				logger.Warn("ignoring non-success outcome for already-paid order",
					zap.String("order_number", orderNumber),
					zap.String("outcome", string(outcome.Status)))
			}
			result = Result{Order: order, Payment: payment, Applied: false, Message: "payment already confirmed"}
			return nil
		case models.PaymentStatusFailed, models.PaymentStatusRefunded:
			logger.Warn("ignoring outcome for settled order",
				zap.String("order_number", orderNumber),
				zap.String("payment_status", string(order.PaymentStatus)),
				zap.String("outcome", string(outcome.Status)))
			result = Result{Order: order, Payment: payment, Applied: false,
				Message: "payment already " + string(order.PaymentStatus)}
			return nil
		}

		switch outcome.Status {
		case paystack.OutcomeSuccess:
			if outcome.AmountMinor != 0 && outcome.AmountMinor != paystack.ToMinorUnits(payment.Amount) {
				logger.Warn("gateway amount differs from recorded amount",
					zap.String("order_number", orderNumber),
					zap.Int64("gateway_amount_minor", outcome.AmountMinor),
					zap.String("recorded_amount", payment.Amount.String()))
			}

			paidAt := outcome.PaidAt
			if paidAt.IsZero() {
				paidAt = time.Now()
			}
			if err := tx.Model(&payment).Updates(map[string]any{
				"status":      models.PaymentRecordCompleted,
				"paid_at":     paidAt,
				"channel":     outcome.Channel,
				"raw_payload": outcome.Raw,
			}).Error; err != nil {
				return err
			}
			// Stock was committed at order creation; nothing to do here.
			if err := tx.Model(&order).Updates(map[string]any{
				"payment_status": models.PaymentStatusPaid,
				"status":         models.OrderStatusProcessing,
				"paid_at":        paidAt,
			}).Error; err != nil {
				return err
			}
			payment.Status = models.PaymentRecordCompleted
			payment.PaidAt = &paidAt
			payment.Channel = outcome.Channel
			payment.RawPayload = outcome.Raw
			order.PaymentStatus = models.PaymentStatusPaid
			order.Status = models.OrderStatusProcessing
			order.PaidAt = &paidAt
			result = Result{Order: order, Payment: payment, Applied: true, Message: "payment confirmed"}
			return nil

		case paystack.OutcomeFailed:
			// Stock is deliberately not released: a failed attempt does not
			// mean the customer abandoned the order. Release happens only on
			// explicit cancellation or expiry.
			if err := tx.Model(&payment).Updates(map[string]any{
				"status":         models.PaymentRecordFailed,
				"failure_reason": outcome.Reason,
				"raw_payload":    outcome.Raw,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&order).
				Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
				return err
			}
			payment.Status = models.PaymentRecordFailed
			payment.FailureReason = outcome.Reason
			payment.RawPayload = outcome.Raw
			order.PaymentStatus = models.PaymentStatusFailed
			result = Result{Order: order, Payment: payment, Applied: true, Message: "payment failed"}
			return nil

		default:
			result = Result{Order: order, Payment: payment, Applied: false, Message: "payment still pending"}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	// Result carries exactly what the transaction committed; no re-read.
	return &result, nil
}
