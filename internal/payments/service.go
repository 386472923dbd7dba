package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Gateway creates remote orders for the checkout widget.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.RemoteOrder, error)
}

type orderFinder interface {
	FindVisible(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*models.Order, error)
}

type ServiceParams struct {
	Repo    *Repository
	Orders  orderFinder
	Gateway Gateway
	KeyID   string
	Logger  *logger.Logger
}

type Service struct {
	repo    *Repository
	orders  orderFinder
	gateway Gateway
	keyID   string
	logg    *logger.Logger
}

// Result is what the storefront needs to open the gateway checkout.
type Result struct {
	OrderID         uuid.UUID      `json:"order_id"`
	PaymentID       uuid.UUID      `json:"payment_id"`
	RazorpayOrderID string         `json:"razorpay_order_id"`
	Amount          int64          `json:"amount"`
	Currency        enums.Currency `json:"currency"`
	RazorpayKeyID   string         `json:"razorpay_key_id"`
}

// NewService accepts a nil Gateway; payment creation then fails with
// GatewayUnavailable.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payments repository required")
	}
	if params.Orders == nil {
		return nil, errors.New("order finder required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		repo:    params.Repo,
		orders:  params.Orders,
		gateway: params.Gateway,
		keyID:   strings.TrimSpace(params.KeyID),
		logg:    params.Logger,
	}, nil
}

// CreatePayment opens a remote order for a pending order. The payment row is
// written only after the gateway accepts.
func (s *Service) CreatePayment(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*Result, error) {
	order, err := s.orders.FindVisible(ctx, shopper, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotPending, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway not configured")
	}

	amount := ToMinor(order.Subtotal, order.Currency)
	remote, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		AmountMinor: amount,
		Currency:    order.Currency.String(),
		Receipt:     order.ID.String(),
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithOrderID(ctx, order.ID.String()), "error", err.Error()), "gateway order creation failed")
		return nil, err
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		Gateway:         models.GatewayRazorpay,
		Amount:          order.Subtotal,
		Currency:        order.Currency,
		Status:          enums.PaymentStatusCreated,
		RazorpayOrderID: remote.ID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_id":        payment.ID.String(),
		"razorpay_order_id": remote.ID,
		"amount_minor":      amount,
	})
	s.logg.Info(logCtx, "payment created")

	return &Result{
		OrderID:         order.ID,
		PaymentID:       payment.ID,
		RazorpayOrderID: remote.ID,
		Amount:          amount,
		Currency:        order.Currency,
		RazorpayKeyID:   s.keyID,
	}, nil
}
