package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Hook runs inside the transaction that performed a transition. A returned
// error rolls the transition back.
type Hook func(ctx context.Context, tx *gorm.DB, order *models.Order) error

// Service is the order state machine plus the shopper-facing read side.
type Service struct {
	repo   *Repository
	outbox outboxPublisher
	logg   *logger.Logger

	mu     sync.RWMutex
	onPaid []Hook
}

func NewService(repo *Repository, outbox outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Service{repo: repo, outbox: outbox, logg: logg}, nil
}

// CanTransition is the single source of order transition legality.
func CanTransition(from, to enums.OrderStatus) bool {
	return from.CanTransitionTo(to)
}

// OnPaid subscribes h to the PENDING_PAYMENT to PAID transition.
func (s *Service) OnPaid(h Hook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPaid = append(s.onPaid, h)
}

// MarkPaid settles the order. It reports false when the order was already
// PAID; an order in any other non-pending state yields StateConflict.
func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	order, changed, err := s.transition(ctx, tx, orderID, enums.OrderStatusPaid)
	if err != nil || !changed {
		return changed, err
	}

	s.mu.RLock()
	hooks := append([]Hook(nil), s.onPaid...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		if err := hook(ctx, tx, order); err != nil {
			return false, err
		}
	}

	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order paid")
	return true, nil
}

// Cancel abandons a pending order and queues order_cancelled.
func (s *Service) Cancel(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (bool, error) {
	order, changed, err := s.transition(ctx, tx, orderID, enums.OrderStatusCancelled)
	if err != nil || !changed {
		return changed, err
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{System: "orders"},
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			Reason:      reason,
			CancelledAt: order.UpdatedAt,
		},
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
	}

	logCtx := s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "reason", reason)
	s.logg.Info(logCtx, "order cancelled")
	return true, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderStatus) (*models.Order, bool, error) {
	if tx == nil {
		return nil, false, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if order.Status == to {
		return order, false, nil
	}
	if !CanTransition(order.Status, to) {
		return nil, false, stateConflict(order.Status, to)
	}

	updated, err := repo.TransitionStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, false, err
	}
	current, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if !updated {
		if current.Status == to {
			return current, false, nil
		}
		return nil, false, stateConflict(current.Status, to)
	}
	return current, true, nil
}

func stateConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot transition").
		WithDetails(map[string]any{"from": from, "to": to})
}

// FindVisible returns the order when the shopper may act on it.
func (s *Service) FindVisible(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindVisible(ctx, shopper, orderID)
}

// Get returns the shopper's order with payment and shipment state.
func (s *Service) Get(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*View, error) {
	order, err := s.repo.FindVisible(ctx, shopper, orderID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List pages through the shopper's orders, newest first.
func (s *Service) List(ctx context.Context, shopper types.Shopper, params pagination.Params) (*pagination.Page[View], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, shopper, cursor, params.Limit)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, rows)
	if err != nil {
		return nil, err
	}
	page := &pagination.Page[View]{Items: views}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ExpirePending cancels orders left unpaid since before cutoff. Each order is
// cancelled in its own transaction; a failing order does not stop the batch.
func (s *Service) ExpirePending(ctx context.Context, runner TxRunner, cutoff time.Time, limit int) (int, error) {
	ids, err := s.repo.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	var errs error
	for _, id := range ids {
		var changed bool
		err := runner.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			changed, txErr = s.Cancel(ctx, tx, id, "payment window expired")
			return txErr
		})
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		if changed {
			cancelled++
		}
	}
	return cancelled, errs
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func (s *Service) views(ctx context.Context, rows []models.Order) ([]View, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, o := range rows {
		ids = append(ids, o.ID)
	}
	payments, err := s.repo.LatestPaymentStatuses(ctx, ids)
	if err != nil {
		return nil, err
	}
	shipments, err := s.repo.Shipments(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		var status *enums.PaymentStatus
		if st, ok := payments[rows[i].ID]; ok {
			status = &st
		}
		views = append(views, NewView(&rows[i], status, shipments[rows[i].ID]))
	}
	return views, nil
}
