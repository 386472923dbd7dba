package enums

import "fmt"

// ShipmentStatus tracks fulfilment progress for a paid order.
type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "CREATED"
	ShipmentStatusPaid      ShipmentStatus = "PAID"
	ShipmentStatusPacked    ShipmentStatus = "PACKED"
	ShipmentStatusShipped   ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusCreated,
	ShipmentStatusPaid,
	ShipmentStatusPacked,
	ShipmentStatusShipped,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusCreated: {ShipmentStatusPaid, ShipmentStatusCancelled},
	ShipmentStatusPaid:    {ShipmentStatusPacked, ShipmentStatusCancelled},
	ShipmentStatusPacked:  {ShipmentStatusShipped, ShipmentStatusCancelled},
	ShipmentStatusShipped: {ShipmentStatusDelivered, ShipmentStatusCancelled},
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the shipment can no longer move.
func (s ShipmentStatus) IsTerminal() bool {
	return s.IsValid() && len(shipmentTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, candidate := range shipmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}

// TrackingEventStatus labels an entry on the shipment timeline.
type TrackingEventStatus string

const (
	TrackingOrderPlaced      TrackingEventStatus = "ORDER_PLACED"
	TrackingPaymentConfirmed TrackingEventStatus = "PAYMENT_CONFIRMED"
	TrackingPacked           TrackingEventStatus = "PACKED"
	TrackingShipped          TrackingEventStatus = "SHIPPED"
	TrackingDelivered        TrackingEventStatus = "DELIVERED"
	TrackingCancelled        TrackingEventStatus = "CANCELLED"
)

// TrackingStatusFor maps a shipment status to the timeline label recorded
// when the shipment enters it.
func TrackingStatusFor(s ShipmentStatus) TrackingEventStatus {
	switch s {
	case ShipmentStatusPaid:
		return TrackingPaymentConfirmed
	case ShipmentStatusPacked:
		return TrackingPacked
	case ShipmentStatusShipped:
		return TrackingShipped
	case ShipmentStatusDelivered:
		return TrackingDelivered
	case ShipmentStatusCancelled:
		return TrackingCancelled
	default:
		return TrackingOrderPlaced
	}
}
