package shipments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	defaultCarrier  = "Storefront Express"
	defaultLeadTime = 5 * 24 * time.Hour
	trackingPrefix  = "SF"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderFinder interface {
	FindVisible(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Orders   orderFinder
	Outbox   outboxPublisher
	Shipping config.ShippingConfig
	Logger   *logger.Logger
}

// Service owns shipments and their tracking timelines.
type Service struct {
	db       txRunner
	repo     *Repository
	orders   orderFinder
	outbox   outboxPublisher
	carrier  string
	leadTime time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("database client required")
	}
	if params.Repo == nil {
		return nil, errors.New("shipments repository required")
	}
	if params.Orders == nil {
		return nil, errors.New("order finder required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	carrier := strings.TrimSpace(params.Shipping.Carrier)
	if carrier == "" {
		carrier = defaultCarrier
	}
	leadTime := params.Shipping.LeadTime()
	if leadTime <= 0 {
		leadTime = defaultLeadTime
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		orders:   params.Orders,
		outbox:   params.Outbox,
		carrier:  carrier,
		leadTime: leadTime,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// EnsureForOrder creates the order's shipment if missing and seeds its
// timeline. It matches orders.Hook and is safe to call repeatedly.
func (s *Service) EnsureForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if order == nil {
		return errors.New("order required")
	}
	repo := s.repo.WithTx(tx)

	status := enums.ShipmentStatusCreated
	if order.Status == enums.OrderStatusPaid {
		status = enums.ShipmentStatusPaid
	}
	eta := order.CreatedAt.Add(s.leadTime)
	created, err := repo.InsertIfAbsent(ctx, &models.Shipment{
		OrderID:               order.ID,
		Carrier:               s.carrier,
		TrackingNumber:        newTrackingNumber(),
		Status:                status,
		EstimatedDeliveryDate: &eta,
	})
	if err != nil {
		return err
	}

	shipment, err := repo.LockByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}

	last, err := repo.LastEvent(ctx, shipment.ID)
	if err != nil {
		return err
	}
	if last == nil {
		placedAt := order.CreatedAt
		seed := []models.TrackingEvent{{
			ShipmentID:  shipment.ID,
			Status:      enums.TrackingOrderPlaced,
			Description: "Order placed",
			OccurredAt:  placedAt,
		}}
		if shipment.Status == enums.ShipmentStatusPaid {
			confirmedAt := order.UpdatedAt
			if confirmedAt.Before(placedAt) {
				confirmedAt = placedAt
			}
			seed = append(seed, models.TrackingEvent{
				ShipmentID:  shipment.ID,
				Status:      enums.TrackingPaymentConfirmed,
				Description: "Payment confirmed",
				OccurredAt:  confirmedAt,
			})
		}
		if err := repo.AddEvents(ctx, seed...); err != nil {
			return err
		}
	} else if shipment.Status == enums.ShipmentStatusCreated && order.Status == enums.OrderStatusPaid {
		if _, err := s.advance(ctx, tx, shipment, enums.ShipmentStatusPaid, "Payment confirmed", "", order.UpdatedAt); err != nil {
			return err
		}
		return nil
	}

	if created {
		if err := s.emitStatus(ctx, tx, shipment, shipment.Status, order.UpdatedAt); err != nil {
			return err
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        order.ID.String(),
			"shipment_id":     shipment.ID.String(),
			"tracking_number": shipment.TrackingNumber,
		})
		s.logg.Info(logCtx, "shipment created")
	}
	return nil
}

// Advance moves the shipment forward and appends a timeline entry. Times
// earlier than the newest entry are clamped to it.
func (s *Service) Advance(ctx context.Context, shipmentID uuid.UUID, status enums.ShipmentStatus, description, location string, at time.Time) (*models.TrackingEvent, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment status").
			WithDetails(map[string]any{"status": status})
	}
	if at.IsZero() {
		at = s.now().UTC()
	}
	var event *models.TrackingEvent
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		shipment, err := s.repo.WithTx(tx).LockByID(ctx, shipmentID)
		if err != nil {
			return err
		}
		event, err = s.advance(ctx, tx, shipment, status, description, location, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) advance(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, status enums.ShipmentStatus, description, location string, at time.Time) (*models.TrackingEvent, error) {
	if !shipment.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipment cannot transition").
			WithDetails(map[string]any{"from": shipment.Status, "to": status})
	}
	repo := s.repo.WithTx(tx)

	last, err := repo.LastEvent(ctx, shipment.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && at.Before(last.OccurredAt) {
		at = last.OccurredAt
	}

	event := models.TrackingEvent{
		ShipmentID:  shipment.ID,
		Status:      enums.TrackingStatusFor(status),
		Description: description,
		Location:    location,
		OccurredAt:  at,
	}
	if err := repo.AddEvents(ctx, event); err != nil {
		return nil, err
	}
	if err := repo.UpdateStatus(ctx, shipment.ID, status); err != nil {
		return nil, err
	}
	shipment.Status = status
	if err := s.emitStatus(ctx, tx, shipment, status, at); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shipment_id": shipment.ID.String(),
		"status":      status,
	})
	s.logg.Info(logCtx, "shipment advanced")
	return &event, nil
}

func (s *Service) emitStatus(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, status enums.ShipmentStatus, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventShipmentStatusChanged,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipment.ID,
		Actor:         &outbox.ActorRef{System: "shipments"},
		Data: payloads.ShipmentStatusChangedEvent{
			ShipmentID:     shipment.ID,
			OrderID:        shipment.OrderID,
			TrackingNumber: shipment.TrackingNumber,
			Status:         status,
			OccurredAt:     at,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shipment status")
	}
	return nil
}

type TrackingView struct {
	ID       uuid.UUID            `json:"id"`
	Status   enums.OrderStatus    `json:"status"`
	Shipment *orders.ShipmentView `json:"shipment"`
}

// Tracking returns the order status and shipment timeline for the shopper.
func (s *Service) Tracking(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*TrackingView, error) {
	order, err := s.orders.FindVisible(ctx, shopper, orderID)
	if err != nil {
		return nil, err
	}
	shipment, err := s.repo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &TrackingView{
		ID:       order.ID,
		Status:   order.Status,
		Shipment: orders.NewShipmentView(shipment),
	}, nil
}

func newTrackingNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return trackingPrefix + strings.ToUpper(raw[:10])
}
