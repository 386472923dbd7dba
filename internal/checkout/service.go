package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service converts a shopper's cart into a pending order.
type Service interface {
	Checkout(ctx context.Context, shopper types.Shopper, address AddressInput) (*models.Order, error)
}

type service struct {
	tx         txRunner
	cartRepo   *cart.Repository
	ordersRepo *orders.Repository
	outbox     outboxPublisher
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo *orders.Repository,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		outbox:     publisher,
		logg:       logg,
	}, nil
}

// Checkout runs in a single transaction: any failure leaves the cart and
// order tables untouched.
func (s *service) Checkout(ctx context.Context, shopper types.Shopper, input AddressInput) (*models.Order, error) {
	address := input.normalize()
	if err := address.validate(); err != nil {
		return nil, err
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.GetOrCreate(ctx, shopper)
		if err != nil {
			return err
		}
		items, err := cartRepo.LockItems(ctx, record.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		owner := shopper.UserID
		if !shopper.IsAuthenticated() {
			owner = nil
		}
		shipping := address.model(owner)
		if err := ordersRepo.CreateAddress(ctx, shipping); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipping address")
		}

		count, subtotal := cart.Totals(items)
		order := &models.Order{
			UserID:            owner,
			CartID:            &record.ID,
			Status:            enums.OrderStatusPendingPayment,
			Subtotal:          subtotal,
			Currency:          enums.CurrencyINR,
			ShippingAddressID: shipping.ID,
		}
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		lines := make([]models.OrderItem, 0, len(items))
		ordered := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ordered = append(ordered, item.ID)
			lines = append(lines, models.OrderItem{
				OrderID:          order.ID,
				ProductVariantID: item.ProductVariantID,
				Quantity:         item.Quantity,
				PriceSnapshot:    item.PriceSnapshot,
				MRPSnapshot:      item.MRPSnapshot,
			})
		}
		if err := ordersRepo.CreateItems(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		// Only the locked lines were copied; a line committed since then stays.
		if err := cartRepo.DeleteItems(ctx, record.ID, ordered); err != nil {
			return err
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: owner, SessionID: shopper.SessionID},
			Data: payloads.OrderCreatedEvent{
				OrderID:   order.ID,
				CartID:    record.ID,
				UserID:    owner,
				Subtotal:  cart.Money(subtotal),
				Currency:  order.Currency,
				ItemCount: count,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		created, err := ordersRepo.FindVisible(ctx, shopper, order.ID)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, result.ID.String()), map[string]any{
		"item_count": len(result.Items),
		"subtotal":   cart.Money(result.Subtotal),
	})
	s.logg.Info(logCtx, "checkout completed")
	return result, nil
}
