package shipments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/db/sqlitetest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type fixture struct {
	svc    *Service
	orders *orders.Service
	client *db.Client
	conn   *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := sqlitetest.Client(t)
	logg := logger.New(logger.Options{Output: io.Discard})
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	ordersSvc, err := orders.NewService(orders.NewRepository(conn), events, logg)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     NewRepository(conn),
		Orders:   ordersSvc,
		Outbox:   events,
		Shipping: config.ShippingConfig{LeadTimeDays: 5, Carrier: "Test Courier"},
		Logger:   logg,
	})
	require.NoError(t, err)
	ordersSvc.OnPaid(svc.EnsureForOrder)
	return fixture{svc: svc, orders: ordersSvc, client: client, conn: conn}
}

func (f fixture) seedOrder(t *testing.T, session string) models.Order {
	t.Helper()
	cart := models.Cart{SessionID: &session}
	require.NoError(t, f.conn.Create(&cart).Error)
	address := models.Address{FullName: "Ravi Kumar", Line1: "4 Park Street", City: "Kolkata", State: "WB", PostalCode: "700016"}
	require.NoError(t, f.conn.Create(&address).Error)
	order := models.Order{
		CartID:            &cart.ID,
		Status:            enums.OrderStatusPendingPayment,
		Subtotal:          decimal.RequireFromString("799.00"),
		Currency:          enums.CurrencyINR,
		ShippingAddressID: address.ID,
	}
	require.NoError(t, f.conn.Omit("Items", "ShippingAddress").Create(&order).Error)
	return order
}

func (f fixture) pay(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.orders.MarkPaid(ctx, tx, orderID)
		return err
	}))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestPaidOrderGetsShipmentWithSeededTimeline(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, "sess-ship-01")
	f.pay(t, order.ID)

	view, err := f.svc.Tracking(context.Background(), types.Shopper{SessionID: "sess-ship-01"}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, view.Status)
	require.NotNil(t, view.Shipment)
	assert.Equal(t, enums.ShipmentStatusPaid, view.Shipment.Status)
	assert.Equal(t, "Test Courier", view.Shipment.Carrier)
	assert.Regexp(t, `^SF[0-9A-F]{10}$`, view.Shipment.TrackingNumber)
	require.NotNil(t, view.Shipment.EstimatedDeliveryDate)
	assert.Equal(t, order.CreatedAt.Add(5*24*time.Hour).UTC().Format("2006-01-02"), *view.Shipment.EstimatedDeliveryDate)

	require.Len(t, view.Shipment.Events, 2)
	assert.Equal(t, enums.TrackingOrderPlaced, view.Shipment.Events[0].Status)
	assert.Equal(t, enums.TrackingPaymentConfirmed, view.Shipment.Events[1].Status)
	assert.False(t, view.Shipment.Events[1].OccurredAt.Before(view.Shipment.Events[0].OccurredAt))
}

func TestEnsureForOrderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, "sess-ship-02")
	f.pay(t, order.ID)

	var paid models.Order
	require.NoError(t, f.conn.First(&paid, "id = ?", order.ID).Error)
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.svc.EnsureForOrder(ctx, tx, &paid)
	}))

	var shipments int64
	require.NoError(t, f.conn.Model(&models.Shipment{}).Count(&shipments).Error)
	assert.Equal(t, int64(1), shipments)
	var events int64
	require.NoError(t, f.conn.Model(&models.TrackingEvent{}).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestEnsureForOrderAdvancesCreatedShipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, "sess-ship-03")

	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.svc.EnsureForOrder(ctx, tx, &order)
	}))
	f.pay(t, order.ID)

	shipment, err := f.svc.repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, shipment)
	assert.Equal(t, enums.ShipmentStatusPaid, shipment.Status)
	require.Len(t, shipment.Events, 2)
	assert.Equal(t, enums.TrackingPaymentConfirmed, shipment.Events[1].Status)
}

func TestAdvanceClampsOutOfOrderTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, "sess-ship-04")
	f.pay(t, order.ID)

	shipment, err := f.svc.repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)

	packedAt := time.Now().UTC().Add(time.Hour)
	_, err = f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusPacked, "Packed", "Mumbai", packedAt)
	require.NoError(t, err)

	event, err := f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusShipped, "Shipped", "Mumbai", packedAt.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, event.OccurredAt.Equal(packedAt))

	reloaded, err := f.svc.repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusShipped, reloaded.Status)
	for i := 1; i < len(reloaded.Events); i++ {
		assert.False(t, reloaded.Events[i].OccurredAt.Before(reloaded.Events[i-1].OccurredAt))
	}
}

func TestAdvanceRejectsIllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, "sess-ship-05")
	f.pay(t, order.ID)
	shipment, err := f.svc.repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusDelivered, "", "", time.Time{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusCancelled, "Cancelled by seller", "", time.Time{})
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusPacked, "", "", time.Time{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAdvanceEmitsStatusEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, "sess-ship-06")
	f.pay(t, order.ID)
	shipment, err := f.svc.repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, shipment.ID, enums.ShipmentStatusPacked, "", "", time.Time{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventShipmentStatusChanged, shipment.ID).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTrackingBeforePayment(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, "sess-ship-07")

	view, err := f.svc.Tracking(context.Background(), types.Shopper{SessionID: "sess-ship-07"}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, view.Status)
	assert.Nil(t, view.Shipment)

	_, err = f.svc.Tracking(context.Background(), types.Shopper{SessionID: "sess-other"}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
