package orderControllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/dbx"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/inventory"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -------- Helpers --------

// mapOrderStatus validates a client-supplied status string.
func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusProcessing):
		return models.OrderStatusProcessing, nil
	case string(models.OrderStatusShipped):
		return models.OrderStatusShipped, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", apperr.Validation("invalid order status %q", status)
	}
}

// lockOrder reads the order with its items under a row lock so that two
// concurrent administrative requests cannot race conflicting transitions.
func lockOrder(tx *gorm.DB, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := dbx.LockForUpdate(tx).
		Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, err
	}
	if err := tx.Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// releaseStockOnce restores stock for the order's physical lines, guarded by
// the stock-restored timestamp so cancellation and refund can never release
// twice between them.
func releaseStockOnce(tx *gorm.DB, order *models.Order) error {
	if order.StockRestoredAt != nil {
		return nil
	}
	if err := inventory.Release(tx, inventory.OrderLines(order.Items)); err != nil {
		return err
	}
	now := time.Now()
	order.StockRestoredAt = &now
	return tx.Model(order).Update("stock_restored_at", now).Error
}

// -------- Core Logic --------

// Cancel cancels an order that has not shipped yet and restores its stock
// exactly once. ownerID is empty for administrative cancellation.
func Cancel(db *gorm.DB, logger *zap.Logger, orderNumber, ownerID string) (*models.Order, error) {
	var cancelled *models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}
		if ownerID != "" && order.UserID != ownerID {
			return apperr.NotFound("order not found")
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
			return apperr.Conflict("cannot cancel an order that is %s", order.Status)
		}
		if err := releaseStockOnce(tx, order); err != nil {
			return err
		}
		if err := tx.Model(order).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order cancelled", zap.String("order_number", orderNumber))
	return cancelled, nil
}

// UpdateStatus applies an administrative status transition. Only the legal
// edges of the lifecycle are accepted: processing -> shipped -> delivered,
// and cancellation of not-yet-shipped orders (which routes through Cancel so
// stock compensation runs).
func UpdateStatus(db *gorm.DB, logger *zap.Logger, orderNumber string, newStatus models.OrderStatus, trackingNumber string) (*models.Order, error) {
	if newStatus == models.OrderStatusCancelled {
		return Cancel(db, logger, orderNumber, "")
	}

	var updated *models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}

		updates := map[string]any{"status": newStatus}
		switch newStatus {
		case models.OrderStatusShipped:
			if order.Status != models.OrderStatusProcessing {
				return apperr.Conflict("cannot ship an order that is %s", order.Status)
			}
			if trackingNumber != "" {
				updates["tracking_number"] = trackingNumber
			}
		case models.OrderStatusDelivered:
			if order.Status != models.OrderStatusShipped {
				return apperr.Conflict("cannot deliver an order that is %s", order.Status)
			}
			updates["delivered_at"] = time.Now()
		default:
			return apperr.Conflict("cannot move an order to %s", newStatus)
		}

		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		order.Status = newStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order status updated",
		zap.String("order_number", orderNumber), zap.String("status", string(newStatus)))
	return updated, nil
}

// Refund refunds a completed payment. The upstream refund call is
// best-effort: local bookkeeping proceeds even when the gateway declines or
// times out, and the discrepancy is logged for manual follow-up. Stock is
// restored, at most once per order.
func Refund(ctx context.Context, db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger, orderNumber string) (*models.Order, error) {
	var (
		method    models.PaymentMethod
		reference string
		amount    int64
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}
		payment, err := refundablePayment(tx, orderNumber)
		if err != nil {
			return err
		}
		method = order.PaymentMethod
		reference = payment.TransactionReference
		amount = paystack.ToMinorUnits(payment.Amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The gateway call runs between the two transactions so the row lock is
	// never held across the network.
	if method == models.PaymentMethodGateway {
		accepted, err := gateway.Refund(ctx, reference, amount)
		if err != nil || !accepted {
			logger.Error("upstream refund did not complete, recording local refund anyway",
				zap.String("order_number", orderNumber), zap.Error(err))
		}
	}

	var refunded *models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderNumber)
		if err != nil {
			return err
		}
		// Re-check under the lock: a racing refund may have settled the
		// payment while the gateway call was in flight.
		payment, err := refundablePayment(tx, orderNumber)
		if err != nil {
			return err
		}

		if err := tx.Model(payment).Update("status", models.PaymentRecordRefunded).Error; err != nil {
			return err
		}
		if err := tx.Model(order).Updates(map[string]any{
			"payment_status": models.PaymentStatusRefunded,
			"status":         models.OrderStatusCancelled,
		}).Error; err != nil {
			return err
		}
		if err := releaseStockOnce(tx, order); err != nil {
			return err
		}
		order.PaymentStatus = models.PaymentStatusRefunded
		order.Status = models.OrderStatusCancelled
		refunded = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order refunded", zap.String("order_number", orderNumber))
	return refunded, nil
}

// refundablePayment loads the order's payment and requires it to still be
// completed.
func refundablePayment(tx *gorm.DB, orderNumber string) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.Where("transaction_reference = ?", orderNumber).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, err
	}
	if payment.Status != models.PaymentRecordCompleted {
		return nil, apperr.Conflict("cannot refund a payment that is %s", payment.Status)
	}
	return &payment, nil
}

// ExpireStalePendingOrders cancels unpaid pending orders older than the
// grace period and releases their reserved stock. Each order is handled in
// its own transaction with a re-check under the lock, so a payment landing
// mid-sweep wins.
func ExpireStalePendingOrders(db *gorm.DB, logger *zap.Logger, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	var numbers []string
	if err := db.Model(&models.Order{}).
		Where("status = ? AND payment_status = ? AND created_at < ?",
			models.OrderStatusPending, models.PaymentStatusPending, cutoff).
		Pluck("order_number", &numbers).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, number := range numbers {
		err := db.Transaction(func(tx *gorm.DB) error {
			order, err := lockOrder(tx, number)
			if err != nil {
				return err
			}
			if order.Status != models.OrderStatusPending ||
				order.PaymentStatus != models.PaymentStatusPending ||
				order.CreatedAt.After(cutoff) {
				return nil
			}
			if err := releaseStockOnce(tx, order); err != nil {
				return err
			}
			if err := tx.Model(order).Update("status", models.OrderStatusCancelled).Error; err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			logger.Error("failed to expire stale order",
				zap.String("order_number", number), zap.Error(err))
		}
	}
	if expired > 0 {
		logger.Info("expired stale pending orders", zap.Int("count", expired))
	}
	return expired, nil
}
