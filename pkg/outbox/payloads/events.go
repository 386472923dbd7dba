package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout converts a cart into an order.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID      `json:"order_id"`
	CartID    uuid.UUID      `json:"cart_id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Subtotal  string         `json:"subtotal"`
	Currency  enums.Currency `json:"currency"`
	ItemCount int            `json:"item_count"`
}

// OrderPaidEvent is emitted once per order when a captured payment settles it.
type OrderPaidEvent struct {
	OrderID           uuid.UUID      `json:"order_id"`
	PaymentID         uuid.UUID      `json:"payment_id"`
	RazorpayOrderID   string         `json:"razorpay_order_id"`
	RazorpayPaymentID string         `json:"razorpay_payment_id,omitempty"`
	Amount            string         `json:"amount"`
	Currency          enums.Currency `json:"currency"`
	PaidAt            time.Time      `json:"paid_at"`
}

// OrderCancelledEvent reports a pending order that will never be paid.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// PaymentFailedEvent mirrors a payment.failed delivery from the gateway.
type PaymentFailedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	PaymentID         uuid.UUID `json:"payment_id"`
	RazorpayOrderID   string    `json:"razorpay_order_id"`
	RazorpayPaymentID string    `json:"razorpay_payment_id,omitempty"`
	ErrorCode         string    `json:"error_code,omitempty"`
	ErrorDescription  string    `json:"error_description,omitempty"`
}

// ShipmentStatusChangedEvent carries every tracking transition.
type ShipmentStatusChangedEvent struct {
	ShipmentID     uuid.UUID            `json:"shipment_id"`
	OrderID        uuid.UUID            `json:"order_id"`
	TrackingNumber string               `json:"tracking_number"`
	Status         enums.ShipmentStatus `json:"status"`
	OccurredAt     time.Time            `json:"occurred_at"`
}
