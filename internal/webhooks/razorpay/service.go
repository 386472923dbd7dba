package razorpaywebhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderStateMachine interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	TransactionRunner txRunner
	Payments          *payments.Repository
	OrdersRepo        *orders.Repository
	Orders            orderStateMachine
	Outbox            outboxPublisher
	Guard             *IdempotencyGuard
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service settles payments from verified gateway deliveries.
type Service struct {
	tx         txRunner
	payments   *payments.Repository
	ordersRepo *orders.Repository
	orders     orderStateMachine
	outbox     outboxPublisher
	guard      *IdempotencyGuard
	metrics    *metrics.WebhookMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order state machine required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		tx:         params.TransactionRunner,
		payments:   params.Payments,
		ordersRepo: params.OrdersRepo,
		orders:     params.Orders,
		outbox:     params.Outbox,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// Process runs a verified delivery through the redelivery guard and
// HandleEvent. The guard mark is released when processing fails so the
// gateway's retry is not swallowed.
func (s *Service) Process(ctx context.Context, evt *Event) (enums.WebhookOutcome, error) {
	if evt == nil || evt.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"webhook_event_id":   evt.ID,
		"webhook_event_type": evt.Type,
	})

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, evt.ID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "webhook guard unavailable")
		} else if seen {
			s.record(ctx, enums.WebhookOutcomeDuplicate)
			return enums.WebhookOutcomeDuplicate, nil
		}
	}

	outcome, err := s.HandleEvent(ctx, evt)
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, evt.ID); delErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "release webhook guard")
			}
		}
		return "", err
	}
	return outcome, nil
}

// HandleEvent applies the delivery and records it in the audit table within
// one transaction.
func (s *Service) HandleEvent(ctx context.Context, evt *Event) (enums.WebhookOutcome, error) {
	if evt == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	var outcome enums.WebhookOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		switch evt.Type {
		case EventPaymentCaptured, EventOrderPaid:
			outcome, err = s.applyCaptured(ctx, tx, evt)
		case EventPaymentFailed:
			outcome, err = s.applyFailed(ctx, tx, evt)
		case "":
			outcome = enums.WebhookOutcomeMalformed
		default:
			outcome = enums.WebhookOutcomeIgnored
		}
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, evt, outcome)
	})
	if err != nil {
		s.logg.Error(ctx, "webhook processing failed", err)
		return "", err
	}

	s.record(ctx, outcome)
	return outcome, nil
}

func (s *Service) applyCaptured(ctx context.Context, tx *gorm.DB, evt *Event) (enums.WebhookOutcome, error) {
	if evt.RazorpayOrderID == "" || evt.RazorpayPaymentID == "" || evt.AmountMinor <= 0 {
		return enums.WebhookOutcomeMalformed, nil
	}
	repo := s.payments.WithTx(tx)

	found, err := repo.FindByRazorpayOrderID(ctx, evt.RazorpayOrderID)
	if err != nil {
		return "", err
	}
	if found == nil {
		return enums.WebhookOutcomeUnmatched, nil
	}
	payment, err := repo.LockByID(ctx, found.ID)
	if err != nil {
		return "", err
	}
	order, err := s.ordersRepo.WithTx(tx).FindByID(ctx, payment.OrderID)
	if err != nil {
		return "", err
	}

	if evt.AmountMinor != payments.ToMinor(payment.Amount, payment.Currency) || !payment.Amount.Equal(order.Subtotal) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"payment_id":     payment.ID.String(),
			"payload_amount": evt.AmountMinor,
			"payment_amount": payment.Amount.StringFixed(2),
			"order_subtotal": order.Subtotal.StringFixed(2),
		}), "webhook amount mismatch")
		return enums.WebhookOutcomeAmountMismatch, nil
	}

	changed, err := repo.MarkPaid(ctx, payment.ID, evt.RazorpayPaymentID, nil)
	if err != nil {
		return "", err
	}
	if !changed {
		return enums.WebhookOutcomeDuplicate, nil
	}

	transitioned, err := s.orders.MarkPaid(ctx, tx, order.ID)
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "payment captured for order that is no longer pending")
		return enums.WebhookOutcomeOrderNotPending, nil
	}
	if err != nil {
		return "", err
	}
	if !transitioned {
		return enums.WebhookOutcomeOrderNotPending, nil
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{System: "razorpay-webhook"},
		Data: payloads.OrderPaidEvent{
			OrderID:           order.ID,
			PaymentID:         payment.ID,
			RazorpayOrderID:   payment.RazorpayOrderID,
			RazorpayPaymentID: evt.RazorpayPaymentID,
			Amount:            payment.Amount.StringFixed(2),
			Currency:          payment.Currency,
			PaidAt:            time.Now().UTC(),
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
	}
	return enums.WebhookOutcomeApplied, nil
}

func (s *Service) applyFailed(ctx context.Context, tx *gorm.DB, evt *Event) (enums.WebhookOutcome, error) {
	if evt.RazorpayOrderID == "" {
		return enums.WebhookOutcomeMalformed, nil
	}
	repo := s.payments.WithTx(tx)

	payment, err := repo.FindByRazorpayOrderID(ctx, evt.RazorpayOrderID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return enums.WebhookOutcomeUnmatched, nil
	}
	changed, err := repo.MarkFailed(ctx, payment.ID, evt.RazorpayPaymentID)
	if err != nil {
		return "", err
	}
	if !changed {
		return enums.WebhookOutcomeDuplicate, nil
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{System: "razorpay-webhook"},
		Data: payloads.PaymentFailedEvent{
			OrderID:           payment.OrderID,
			PaymentID:         payment.ID,
			RazorpayOrderID:   payment.RazorpayOrderID,
			RazorpayPaymentID: evt.RazorpayPaymentID,
			ErrorCode:         evt.ErrorCode,
			ErrorDescription:  evt.ErrorDescription,
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed")
	}
	return enums.WebhookOutcomePaymentFailed, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, evt *Event, outcome enums.WebhookOutcome) error {
	eventType := evt.Type
	if eventType == "" {
		eventType = "unknown"
	}
	row := models.WebhookEvent{
		Gateway:           models.GatewayRazorpay,
		EventID:           evt.ID,
		EventType:         eventType,
		RazorpayOrderID:   optional(evt.RazorpayOrderID),
		RazorpayPaymentID: optional(evt.RazorpayPaymentID),
		Outcome:           outcome,
		Payload:           evt.Payload,
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "gateway"}, {Name: "event_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
	}
	return nil
}

func (s *Service) record(ctx context.Context, outcome enums.WebhookOutcome) {
	s.metrics.IncOutcome(models.GatewayRazorpay, outcome.String())
	logCtx := s.logg.WithField(ctx, "outcome", outcome)
	if outcome.Changed() {
		s.logg.Info(logCtx, "webhook event processed")
		return
	}
	s.logg.Debug(logCtx, "webhook event processed without change")
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
