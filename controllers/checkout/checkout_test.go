package checkoutControllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cartControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/cart"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/testdb"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
)

func shippingAddress() models.Address {
	return models.Address{
		Street:  "12 Marina Road",
		City:    "Lagos",
		Country: "NG",
		Phone:   "+2348000000000",
	}
}

func checkoutInput(method models.PaymentMethod) CheckoutInput {
	return CheckoutInput{
		ShippingAddress: shippingAddress(),
		PaymentMethod:   method,
		Email:           "u1@example.com",
	}
}

// Scenario: product (stock 5, 100.00 x2) + service variant (50.00 x1) via
// bank transfer.
func TestCreateOrder_BankTransfer(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "100.00", 5)
	variant := testdb.SeedServiceVariant(t, db, "Installation", "Standard", "50.00")

	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ServiceVariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)

	order, err := CreateOrder(db, "u1", checkoutInput(models.PaymentMethodBankTransfer))
	require.NoError(t, err)

	assert.True(t, order.Total.Equal(decimal.RequireFromString("250.00")))
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Len(t, order.Items, 2)

	// Stock committed at creation.
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 3, reloaded.Stock)

	// Payment row pending, keyed by the order number.
	var payment models.Payment
	require.NoError(t, db.Where("transaction_reference = ?", order.OrderNumber).First(&payment).Error)
	assert.Equal(t, models.PaymentRecordPending, payment.Status)
	assert.True(t, payment.Amount.Equal(order.Total))

	// Cart cleared, totals zeroed, row kept.
	snap, err := cartControllers.TakeSnapshot(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
	assert.True(t, snap.Total.IsZero())

	// Billing defaulted to shipping.
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
}

func TestCreateOrder_FrozenTotalsSurviveRepricing(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "100.00", 5)

	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 2})
	require.NoError(t, err)
	order, err := CreateOrder(db, "u1", checkoutInput(models.PaymentMethodBankTransfer))
	require.NoError(t, err)

	require.NoError(t, db.Model(&product).Update("price", decimal.RequireFromString("999.00")).Error)

	var reloaded models.Order
	require.NoError(t, db.Preload("Items").First(&reloaded, order.ID).Error)

	sum := decimal.Zero
	for _, item := range reloaded.Items {
		sum = sum.Add(item.LineTotal())
	}
	assert.True(t, reloaded.Total.Equal(sum))
	assert.True(t, reloaded.Total.Equal(decimal.RequireFromString("200.00")))
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")

	_, err := CreateOrder(db, "u1", checkoutInput(models.PaymentMethodBankTransfer))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateOrder_AddressValidation(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "10.00", 5)
	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)

	input := checkoutInput(models.PaymentMethodBankTransfer)
	input.ShippingAddress.Phone = ""
	_, err = CreateOrder(db, "u1", input)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	input = checkoutInput("wire")
	_, err = CreateOrder(db, "u1", input)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

// Two carts race for the last unit: the first checkout wins, the second is
// rejected by the in-transaction stock re-check, and nothing about the
// second user's cart or the product is left half-applied.
func TestCreateOrder_LastUnitRace(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	testdb.SeedUser(t, db, "u2")
	product := testdb.SeedProduct(t, db, "Widget", "10.00", 1)

	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = cartControllers.AddItem(db, "u2", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = CreateOrder(db, "u1", checkoutInput(models.PaymentMethodBankTransfer))
	require.NoError(t, err)

	_, err = CreateOrder(db, "u2", checkoutInput(models.PaymentMethodBankTransfer))
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "insufficient stock")

	// The loser's cart is untouched and no second order exists.
	snap, err := cartControllers.TakeSnapshot(db, "u2")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)
}

func TestCreateOrder_DeactivatedLineAbortsCheckout(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "10.00", 5)
	variant := testdb.SeedServiceVariant(t, db, "Installation", "Standard", "50.00")

	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ServiceVariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.ServiceVariant{}).Where("id = ?", variant.ID).Update("active", false).Error)

	_, err = CreateOrder(db, "u1", checkoutInput(models.PaymentMethodBankTransfer))
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// Rolled back: no stock decrement, cart intact.
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)

	snap, err := cartControllers.TakeSnapshot(db, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
}

// A colliding order number surfaces as gorm.ErrDuplicatedKey, which is what
// CreateOrder's retry loop keys on; the failed attempt rolls back fully.
func TestCreateOrderOnce_DuplicateNumberRollsBack(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "10.00", 5)

	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = createOrderOnce(db, "u1", checkoutInput(models.PaymentMethodBankTransfer), "20250101120000-FIXED001")
	require.NoError(t, err)

	_, err = cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = createOrderOnce(db, "u1", checkoutInput(models.PaymentMethodBankTransfer), "20250101120000-FIXED001")
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// The losing attempt left no stock decrement and the cart intact.
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 4, reloaded.Stock)

	snap, err := cartControllers.TakeSnapshot(db, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
}

func TestOrderNumbersAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := generateOrderNumber()
		assert.False(t, seen[number], "duplicate order number %s", number)
		seen[number] = true
	}
}

// countingGateway tracks how often Initialize is reached.
type countingGateway struct{ initCalls int }

func (g *countingGateway) Initialize(context.Context, string, int64, string, string) (*paystack.InitResult, error) {
	g.initCalls++
	return &paystack.InitResult{
		AuthorizationURL:  "https://checkout.example/one",
		AccessCode:        "AC_1",
		ProviderReference: "prov-1",
	}, nil
}

func (g *countingGateway) Verify(context.Context, string) (*paystack.VerifyResult, error) {
	return &paystack.VerifyResult{Status: paystack.OutcomePending}, nil
}

func (g *countingGateway) Refund(context.Context, string, int64) (bool, error) {
	return true, nil
}

// Repeated payment initialization for the same order replays the stored
// authorization URL: the gateway sees exactly one initialize call.
func TestInitializePayment_ReplaysStoredAuthorization(t *testing.T) {
	db := testdb.Open(t)
	testdb.SeedUser(t, db, "u1")
	product := testdb.SeedProduct(t, db, "Widget", "100.00", 5)
	_, err := cartControllers.AddItem(db, "u1", cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
	require.NoError(t, err)
	order, err := CreateOrder(db, "u1", checkoutInput(models.PaymentMethodGateway))
	require.NoError(t, err)

	gateway := &countingGateway{}
	handler := InitializePaymentHandler(db, gateway, zap.NewNop())
	gin.SetMode(gin.TestMode)

	pay := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/user/checkout/"+order.OrderNumber+"/pay", nil)
		c.Params = gin.Params{{Key: "orderNumber", Value: order.OrderNumber}}
		c.Set("user_id", "u1")
		handler(c)
		return w
	}

	first := pay()
	second := pay()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, gateway.initCalls, "a second call must replay, not re-initialize")
	assert.Contains(t, second.Body.String(), "https://checkout.example/one")
}

// Exercises the last-unit race with real goroutine concurrency and real
// FOR UPDATE row locks. Needs a reachable postgres; skipped otherwise.
func TestCreateOrder_LastUnitRaceConcurrent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pg, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, pg.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Service{}, &models.ServiceVariant{},
		&models.Cart{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{}, &models.Payment{},
	))

	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	users := []string{"race1-" + suffix, "race2-" + suffix}
	for _, id := range users {
		require.NoError(t, pg.Create(&models.User{ID: id, Email: id + "@example.com"}).Error)
	}
	product := models.Product{
		Name:   "Race Widget " + suffix,
		Price:  decimal.RequireFromString("10.00"),
		Stock:  1,
		Active: true,
	}
	require.NoError(t, pg.Create(&product).Error)

	for _, id := range users {
		_, err := cartControllers.AddItem(pg, id, cartControllers.AddItemInput{ProductID: &product.ID, Quantity: 1})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, id := range users {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = CreateOrder(pg, id, checkoutInput(models.PaymentMethodBankTransfer))
		}(i, id)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperr.IsKind(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	var reloaded models.Product
	require.NoError(t, pg.First(&reloaded, product.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)
}
