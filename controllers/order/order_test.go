package orderControllers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	cartControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/cart"
	checkoutControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/checkout"
	orderControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/order"
	paymentControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/payment"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/testdb"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
)

// fakeGateway records refund calls and can be told to fail upstream.
// onRefund, when set, runs during the upstream call to simulate work that
// completes while the refund is in flight.
type fakeGateway struct {
	refundCalls  int
	refundErr    error
	refundRefuse bool
	onRefund     func()
}

func (f *fakeGateway) Initialize(context.Context, string, int64, string, string) (*paystack.InitResult, error) {
	return &paystack.InitResult{AuthorizationURL: "https://gateway.example/pay", AccessCode: "AC_test"}, nil
}

func (f *fakeGateway) Verify(context.Context, string) (*paystack.VerifyResult, error) {
	return &paystack.VerifyResult{Status: paystack.OutcomeSuccess}, nil
}

func (f *fakeGateway) Refund(context.Context, string, int64) (bool, error) {
	f.refundCalls++
	if f.onRefund != nil {
		f.onRefund()
	}
	if f.refundErr != nil {
		return false, f.refundErr
	}
	return !f.refundRefuse, nil
}

func placeOrder(t *testing.T, db *gorm.DB, method models.PaymentMethod, quantity int) *models.Order {
	t.Helper()
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "100.00", 5)
	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: quantity})
	require.NoError(t, err)

	order, err := checkoutControllers.CreateOrder(db, "u1", checkoutControllers.CheckoutInput{
		ShippingAddress: models.Address{Street: "12 Marina Road", City: "Lagos", Phone: "+2348000000000"},
		PaymentMethod:   method,
		Email:           "u1@example.com",
	})
	require.NoError(t, err)
	return order
}

func productStock(t *testing.T, db *gorm.DB) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "name = ?", "Widget").Error)
	return product.Stock
}

func markPaid(t *testing.T, db *gorm.DB, orderNumber string) {
	t.Helper()
	_, err := paymentControllers.ApplyOutcome(db, zap.NewNop(), orderNumber, paymentControllers.Outcome{
		Status: paystack.OutcomeSuccess,
		PaidAt: time.Now(),
	})
	require.NoError(t, err)
}

// A pending order is cancelled: stock returns; a second cancel is an
// illegal transition.
func TestCancel_PendingOrderRestoresStockOnce(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodBankTransfer, 2)
	require.Equal(t, 3, productStock(t, db))

	cancelled, err := orderControllers.Cancel(db, zap.NewNop(), order.OrderNumber, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, productStock(t, db))

	_, err = orderControllers.Cancel(db, zap.NewNop(), order.OrderNumber, "u1")
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 5, productStock(t, db), "stock must be restored exactly once")
}

func TestCancel_OnlyOwnOrders(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodBankTransfer, 1)

	_, err := orderControllers.Cancel(db, zap.NewNop(), order.OrderNumber, "intruder")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCancel_RejectedOnceShipped(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodGateway, 1)
	markPaid(t, db, order.OrderNumber)

	_, err := orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusShipped, "TRK-1")
	require.NoError(t, err)

	_, err = orderControllers.Cancel(db, zap.NewNop(), order.OrderNumber, "")
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 4, productStock(t, db))
}

func TestUpdateStatus_ForwardProgression(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodGateway, 1)

	// Cannot ship an unpaid pending order.
	_, err := orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusShipped, "")
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	markPaid(t, db, order.OrderNumber)

	shipped, err := orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusShipped, "TRK-42")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)

	var reloaded models.Order
	require.NoError(t, db.Where("order_number = ?", order.OrderNumber).First(&reloaded).Error)
	assert.Equal(t, "TRK-42", reloaded.TrackingNumber)

	// Cannot deliver out of order.
	_, err = orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusProcessing, "")
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	delivered, err := orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, delivered.Status)

	require.NoError(t, db.Where("order_number = ?", order.OrderNumber).First(&reloaded).Error)
	require.NotNil(t, reloaded.DeliveredAt)

	// Delivered is terminal.
	_, err = orderControllers.UpdateStatus(db, zap.NewNop(), order.OrderNumber, models.OrderStatusShipped, "")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

// A paid order is refunded: payment refunded, order cancelled, stock
// restored once even if the cancel already ran.
func TestRefund_PaidOrder(t *testing.T) {
	db := testdb.Open(t)
	gateway := &fakeGateway{}
	order := placeOrder(t, db, models.PaymentMethodGateway, 2)
	markPaid(t, db, order.OrderNumber)
	require.Equal(t, 3, productStock(t, db))

	refunded, err := orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, refunded.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 1, gateway.refundCalls)
	assert.Equal(t, 5, productStock(t, db))

	var payment models.Payment
	require.NoError(t, db.Where("transaction_reference = ?", order.OrderNumber).First(&payment).Error)
	assert.Equal(t, models.PaymentRecordRefunded, payment.Status)

	// A second refund is rejected and stock is untouched.
	_, err = orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 5, productStock(t, db))
}

// Refund after a paid order was cancelled must not release stock twice.
func TestRefund_AfterCancelReleasesStockOnce(t *testing.T) {
	db := testdb.Open(t)
	gateway := &fakeGateway{}
	order := placeOrder(t, db, models.PaymentMethodGateway, 2)
	markPaid(t, db, order.OrderNumber)

	_, err := orderControllers.Cancel(db, zap.NewNop(), order.OrderNumber, "")
	require.NoError(t, err)
	require.Equal(t, 5, productStock(t, db))

	refunded, err := orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 5, productStock(t, db), "stock must not be restored twice")
}

// Upstream refund failure still records the local refund.
func TestRefund_UpstreamFailureStillRecordsLocally(t *testing.T) {
	db := testdb.Open(t)
	gateway := &fakeGateway{refundErr: apperr.Upstream("gateway timeout", nil)}
	order := placeOrder(t, db, models.PaymentMethodGateway, 1)
	markPaid(t, db, order.OrderNumber)

	refunded, err := orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 5, productStock(t, db))
}

// The gateway call runs with no row lock held; the post-call transaction
// re-checks the payment, so a refund settled while the call was in flight
// makes the slower refund lose cleanly instead of double-applying.
func TestRefund_RacingRefundLosesCleanly(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodGateway, 2)
	markPaid(t, db, order.OrderNumber)
	require.Equal(t, 3, productStock(t, db))

	gateway := &fakeGateway{}
	gateway.onRefund = func() {
		require.NoError(t, db.Model(&models.Payment{}).
			Where("transaction_reference = ?", order.OrderNumber).
			Update("status", models.PaymentRecordRefunded).Error)
	}

	_, err := orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 1, gateway.refundCalls)
	assert.Equal(t, 3, productStock(t, db), "the losing refund must not touch stock")
}

func TestRefund_RequiresCompletedPayment(t *testing.T) {
	db := testdb.Open(t)
	gateway := &fakeGateway{}
	order := placeOrder(t, db, models.PaymentMethodGateway, 1)

	_, err := orderControllers.Refund(context.Background(), db, gateway, zap.NewNop(), order.OrderNumber)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Zero(t, gateway.refundCalls)
}

func TestExpireStalePendingOrders(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodGateway, 2)
	require.Equal(t, 3, productStock(t, db))

	// Fresh orders are untouched.
	count, err := orderControllers.ExpireStalePendingOrders(db, zap.NewNop(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Age the order beyond the grace period.
	require.NoError(t, db.Model(&models.Order{}).
		Where("order_number = ?", order.OrderNumber).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	count, err = orderControllers.ExpireStalePendingOrders(db, zap.NewNop(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 5, productStock(t, db))

	var reloaded models.Order
	require.NoError(t, db.Where("order_number = ?", order.OrderNumber).First(&reloaded).Error)
	assert.Equal(t, models.OrderStatusCancelled, reloaded.Status)

	// The sweep is idempotent.
	count, err = orderControllers.ExpireStalePendingOrders(db, zap.NewNop(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 5, productStock(t, db))
}

// A paid order never expires.
func TestExpireStalePendingOrders_SkipsPaid(t *testing.T) {
	db := testdb.Open(t)
	order := placeOrder(t, db, models.PaymentMethodGateway, 1)
	markPaid(t, db, order.OrderNumber)

	require.NoError(t, db.Model(&models.Order{}).
		Where("order_number = ?", order.OrderNumber).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	count, err := orderControllers.ExpireStalePendingOrders(db, zap.NewNop(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 4, productStock(t, db))
}
