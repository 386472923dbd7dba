package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/db/sqlitetest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type failingOutbox struct{}

func (failingOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

type fixture struct {
	checkout Service
	cart     *cart.Service
	conn     *gorm.DB
}

func newFixture(t *testing.T, publisher outboxPublisher) fixture {
	t.Helper()
	client, conn := sqlitetest.Client(t)
	logg := logger.New(logger.Options{Output: io.Discard})
	if publisher == nil {
		publisher = outbox.NewService(outbox.NewRepository(conn), logg)
	}
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, catalog.NewRepository(conn), logg)
	require.NoError(t, err)
	svc, err := NewService(client, cartRepo, orders.NewRepository(conn), publisher, logg)
	require.NoError(t, err)
	return fixture{checkout: svc, cart: cartSvc, conn: conn}
}

func validAddress() AddressInput {
	return AddressInput{
		FullName:   " Meera Iyer ",
		Line1:      "221 Anna Salai",
		City:       "Chennai",
		State:      "TN",
		PostalCode: "600002",
		Phone:      "+919800000000",
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	shopper := types.Shopper{SessionID: "sess-checkout-1"}
	shirt := sqlitetest.SeedVariant(t, f.conn, "SHIRT-L", "999.00", "1299.00")
	socks := sqlitetest.SeedVariant(t, f.conn, "SOCKS", "149.50", "")

	_, err := f.cart.AddItem(ctx, shopper, shirt.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, shopper, socks.ID, 1)
	require.NoError(t, err)

	// Catalog repricing after the add must not reach the order.
	require.NoError(t, f.conn.Model(&models.ProductVariant{}).Where("id = ?", shirt.ID).Update("price", "1099.00").Error)

	order, err := f.checkout.Checkout(ctx, shopper, validAddress())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, enums.CurrencyINR, order.Currency)
	assert.True(t, decimal.RequireFromString("2147.50").Equal(order.Subtotal))
	assert.Nil(t, order.UserID)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		if item.ProductVariantID == shirt.ID {
			assert.Equal(t, "999.00", item.PriceSnapshot.StringFixed(2))
			require.NotNil(t, item.MRPSnapshot)
			assert.Equal(t, "1299.00", item.MRPSnapshot.StringFixed(2))
		}
	}
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "Meera Iyer", order.ShippingAddress.FullName)
	assert.Equal(t, "IN", order.ShippingAddress.Country)

	view, err := f.cart.Get(ctx, shopper)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestCheckoutOwnsAddressForUsers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	shopper := types.Shopper{UserID: &userID}
	variant := sqlitetest.SeedVariant(t, f.conn, "CAP", "350.00", "")
	_, err := f.cart.AddItem(ctx, shopper, variant.ID, 1)
	require.NoError(t, err)

	order, err := f.checkout.Checkout(ctx, shopper, validAddress())
	require.NoError(t, err)
	require.NotNil(t, order.UserID)
	assert.Equal(t, userID, *order.UserID)
	require.NotNil(t, order.ShippingAddress.UserID)
	assert.Equal(t, userID, *order.ShippingAddress.UserID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.checkout.Checkout(context.Background(), types.Shopper{SessionID: "sess-empty"}, validAddress())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckoutValidatesAddress(t *testing.T) {
	f := newFixture(t, nil)
	input := validAddress()
	input.City = "  "
	_, err := f.checkout.Checkout(context.Background(), types.Shopper{SessionID: "sess-addr"}, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, failingOutbox{})
	ctx := context.Background()
	shopper := types.Shopper{SessionID: "sess-rollback"}
	variant := sqlitetest.SeedVariant(t, f.conn, "MUG", "299.00", "")
	_, err := f.cart.AddItem(ctx, shopper, variant.ID, 3)
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, shopper, validAddress())
	require.Error(t, err)

	for _, model := range []any{&models.Order{}, &models.OrderItem{}, &models.Address{}} {
		var count int64
		require.NoError(t, f.conn.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
	view, err := f.cart.Get(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
}

func TestCheckoutKeepsLinesAddedAfterLock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	shopper := types.Shopper{SessionID: "sess-late-line"}
	first := sqlitetest.SeedVariant(t, f.conn, "TEE", "100.00", "")
	late := sqlitetest.SeedVariant(t, f.conn, "LATE-P", "40.00", "")

	_, err := f.cart.AddItem(ctx, shopper, first.ID, 1)
	require.NoError(t, err)
	view, err := f.cart.Get(ctx, shopper)
	require.NoError(t, err)
	cartID := view.ID

	// A concurrent add that commits between the line lock and the clear.
	injected := false
	require.NoError(t, f.conn.Callback().Create().After("gorm:create").Register("test:late_cart_line", func(db *gorm.DB) {
		if injected || db.Statement.Table != "order_items" {
			return
		}
		injected = true
		line := models.CartItem{
			CartID:           cartID,
			ProductVariantID: late.ID,
			Quantity:         2,
			PriceSnapshot:    late.Price,
		}
		if err := db.Session(&gorm.Session{NewDB: true}).Create(&line).Error; err != nil {
			_ = db.AddError(err)
		}
	}))

	order, err := f.checkout.Checkout(ctx, shopper, validAddress())
	require.NoError(t, err)
	require.True(t, injected)
	require.Len(t, order.Items, 1)
	assert.Equal(t, first.ID, order.Items[0].ProductVariantID)
	assert.Equal(t, "100.00", order.Subtotal.StringFixed(2))

	view, err = f.cart.Get(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}
