package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type AddressView struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
}

type ItemView struct {
	ID             uuid.UUID         `json:"id"`
	ProductVariant *cart.VariantView `json:"product_variant"`
	Quantity       int               `json:"quantity"`
	PriceSnapshot  string            `json:"price_snapshot"`
	MRPSnapshot    *string           `json:"mrp_snapshot"`
	LineTotal      string            `json:"line_total"`
}

type TrackingEventView struct {
	Status      enums.TrackingEventStatus `json:"status"`
	Description string                    `json:"description"`
	Location    string                    `json:"location"`
	OccurredAt  time.Time                 `json:"occurred_at"`
}

type ShipmentView struct {
	ID                    uuid.UUID            `json:"id"`
	Carrier               string               `json:"carrier"`
	TrackingNumber        string               `json:"tracking_number"`
	Status                enums.ShipmentStatus `json:"status"`
	EstimatedDeliveryDate *string              `json:"estimated_delivery_date"`
	Events                []TrackingEventView  `json:"events"`
}

type View struct {
	ID              uuid.UUID            `json:"id"`
	Status          enums.OrderStatus    `json:"status"`
	Subtotal        string               `json:"subtotal"`
	Currency        enums.Currency       `json:"currency"`
	ItemCount       int                  `json:"item_count"`
	PaymentStatus   *enums.PaymentStatus `json:"payment_status"`
	ShippingAddress *AddressView         `json:"shipping_address"`
	Items           []ItemView           `json:"items"`
	Shipment        *ShipmentView        `json:"shipment"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func NewAddressView(a *models.Address) *AddressView {
	if a == nil {
		return nil
	}
	return &AddressView{
		ID:         a.ID,
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

// NewShipmentView maps a shipment and its already ordered events.
func NewShipmentView(s *models.Shipment) *ShipmentView {
	if s == nil {
		return nil
	}
	view := &ShipmentView{
		ID:             s.ID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         s.Status,
		Events:         make([]TrackingEventView, 0, len(s.Events)),
	}
	if s.EstimatedDeliveryDate != nil {
		eta := s.EstimatedDeliveryDate.UTC().Format(dateLayout)
		view.EstimatedDeliveryDate = &eta
	}
	for _, e := range s.Events {
		view.Events = append(view.Events, TrackingEventView{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  e.OccurredAt,
		})
	}
	return view
}

// NewView renders an order; payment and shipment may be nil.
func NewView(order *models.Order, payment *enums.PaymentStatus, shipment *models.Shipment) View {
	items := make([]ItemView, 0, len(order.Items))
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
		var mrp *string
		if item.MRPSnapshot != nil {
			m := cart.Money(*item.MRPSnapshot)
			mrp = &m
		}
		items = append(items, ItemView{
			ID:             item.ID,
			ProductVariant: cart.NewVariantView(item.ProductVariant),
			Quantity:       item.Quantity,
			PriceSnapshot:  cart.Money(item.PriceSnapshot),
			MRPSnapshot:    mrp,
			LineTotal:      cart.Money(item.LineTotal()),
		})
	}
	return View{
		ID:              order.ID,
		Status:          order.Status,
		Subtotal:        cart.Money(order.Subtotal),
		Currency:        order.Currency,
		ItemCount:       count,
		PaymentStatus:   payment,
		ShippingAddress: NewAddressView(order.ShippingAddress),
		Items:           items,
		Shipment:        NewShipmentView(shipment),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
