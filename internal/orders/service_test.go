package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/db/sqlitetest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *db.Client, *gorm.DB) {
	t.Helper()
	client, conn := sqlitetest.Client(t)
	logg := logger.New(logger.Options{Output: io.Discard})
	svc, err := NewService(NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), logg), logg)
	require.NoError(t, err)
	return svc, client, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, owner types.Shopper, status enums.OrderStatus) models.Order {
	t.Helper()
	cart := models.Cart{UserID: owner.UserID}
	if owner.SessionID != "" {
		cart.SessionID = &owner.SessionID
	}
	require.NoError(t, conn.Create(&cart).Error)

	address := models.Address{FullName: "Asha Rao", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001"}
	require.NoError(t, conn.Create(&address).Error)

	variant := sqlitetest.SeedVariant(t, conn, "SKU-"+uuid.NewString()[:8], "250.00", "300.00")
	order := models.Order{
		UserID:            owner.UserID,
		CartID:            &cart.ID,
		Status:            status,
		Subtotal:          decimal.RequireFromString("500.00"),
		Currency:          enums.CurrencyINR,
		ShippingAddressID: address.ID,
	}
	require.NoError(t, conn.Omit("Items", "ShippingAddress").Create(&order).Error)
	item := models.OrderItem{
		OrderID:          order.ID,
		ProductVariantID: variant.ID,
		Quantity:         2,
		PriceSnapshot:    variant.Price,
		MRPSnapshot:      variant.MRP,
	}
	require.NoError(t, conn.Omit("ProductVariant").Create(&item).Error)
	return order
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusPendingPayment, enums.OrderStatusPaid))
	assert.True(t, CanTransition(enums.OrderStatusPendingPayment, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusPaid, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusPaid))
	assert.False(t, CanTransition(enums.OrderStatusPaid, enums.OrderStatusPendingPayment))
}

func TestMarkPaidRunsHooksOnce(t *testing.T) {
	svc, client, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, conn, types.Shopper{UserID: &userID}, enums.OrderStatusPendingPayment)

	calls := 0
	svc.OnPaid(func(_ context.Context, _ *gorm.DB, paid *models.Order) error {
		calls++
		assert.Equal(t, enums.OrderStatusPaid, paid.Status)
		return nil
	})

	for i, want := range []bool{true, false} {
		var changed bool
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			changed, err = svc.MarkPaid(ctx, tx, order.ID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, want, changed, "attempt %d", i)
	}
	assert.Equal(t, 1, calls)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
}

func TestMarkPaidHookFailureRollsBack(t *testing.T) {
	svc, client, conn := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, conn, types.Shopper{SessionID: "sess-hookfail"}, enums.OrderStatusPendingPayment)

	svc.OnPaid(func(context.Context, *gorm.DB, *models.Order) error {
		return errors.New("shipment store down")
	})

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.MarkPaid(ctx, tx, order.ID)
		return err
	})
	require.Error(t, err)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPendingPayment, stored.Status)
}

func TestIllegalTransitionsConflict(t *testing.T) {
	svc, client, conn := newTestService(t)
	ctx := context.Background()
	paid := seedOrder(t, conn, types.Shopper{SessionID: "sess-paid"}, enums.OrderStatusPaid)
	cancelled := seedOrder(t, conn, types.Shopper{SessionID: "sess-cancelled"}, enums.OrderStatusCancelled)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.Cancel(ctx, tx, paid.ID, "too late")
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.MarkPaid(ctx, tx, cancelled.ID)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelEmitsEvent(t *testing.T) {
	svc, client, conn := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, conn, types.Shopper{SessionID: "sess-cancel"}, enums.OrderStatusPendingPayment)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := svc.Cancel(ctx, tx, order.ID, "shopper request")
		assert.True(t, changed)
		return err
	})
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCancelled, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestMissingOrderIsNotFound(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.MarkPaid(ctx, tx, uuid.New())
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetScopesToOwner(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := types.Shopper{UserID: &userID}
	order := seedOrder(t, conn, owner, enums.OrderStatusPendingPayment)

	view, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", view.Subtotal)
	assert.Equal(t, 2, view.ItemCount)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "500.00", view.Items[0].LineTotal)
	require.NotNil(t, view.ShippingAddress)
	assert.Equal(t, "560001", view.ShippingAddress.PostalCode)
	assert.Nil(t, view.PaymentStatus)
	assert.Nil(t, view.Shipment)

	otherID := uuid.New()
	_, err = svc.Get(ctx, types.Shopper{UserID: &otherID}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetGuestOrderBySession(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, conn, types.Shopper{SessionID: "sess-guest01"}, enums.OrderStatusPendingPayment)

	_, err := svc.Get(ctx, types.Shopper{SessionID: "sess-guest01"}, order.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, types.Shopper{SessionID: "sess-guest02"}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetIncludesLatestPaymentStatus(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	owner := types.Shopper{SessionID: "sess-payment"}
	order := seedOrder(t, conn, owner, enums.OrderStatusPendingPayment)

	first := models.Payment{OrderID: order.ID, Amount: order.Subtotal, Currency: enums.CurrencyINR, Status: enums.PaymentStatusFailed, RazorpayOrderID: "order_A"}
	require.NoError(t, conn.Create(&first).Error)
	second := models.Payment{OrderID: order.ID, Amount: order.Subtotal, Currency: enums.CurrencyINR, Status: enums.PaymentStatusCreated, RazorpayOrderID: "order_B"}
	require.NoError(t, conn.Create(&second).Error)
	require.NoError(t, conn.Model(&second).Update("created_at", time.Now().UTC().Add(time.Minute)).Error)

	view, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.NotNil(t, view.PaymentStatus)
	assert.Equal(t, enums.PaymentStatusCreated, *view.PaymentStatus)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := types.Shopper{UserID: &userID}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		order := seedOrder(t, conn, owner, enums.OrderStatusPendingPayment)
		require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
		ids = append(ids, order.ID)
	}
	seedOrder(t, conn, types.Shopper{SessionID: "sess-stranger"}, enums.OrderStatusPendingPayment)

	page, err := svc.List(ctx, owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(ctx, owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, ids[0], next.Items[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.List(context.Background(), types.Shopper{SessionID: "sess-x"}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestExpirePendingCancelsStaleOrders(t *testing.T) {
	svc, client, conn := newTestService(t)
	ctx := context.Background()
	stale := seedOrder(t, conn, types.Shopper{SessionID: "sess-stale"}, enums.OrderStatusPendingPayment)
	fresh := seedOrder(t, conn, types.Shopper{SessionID: "sess-fresh"}, enums.OrderStatusPendingPayment)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-72*time.Hour)).Error)

	n, err := svc.ExpirePending(ctx, client, time.Now().UTC().Add(-48*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.Order
	require.NoError(t, conn.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.NoError(t, conn.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, enums.OrderStatusPendingPayment, got.Status)
}
