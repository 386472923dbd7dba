package razorpaywebhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// Event is a verified delivery reduced to the fields settlement needs.
// Type is empty when the body was not a decodable event.
type Event struct {
	ID                string
	Type              string
	RazorpayOrderID   string
	RazorpayPaymentID string
	AmountMinor       int64
	Currency          string
	ErrorCode         string
	ErrorDescription  string
	Payload           json.RawMessage
}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string  `json:"id"`
	OrderID          string  `json:"order_id"`
	Amount           int64   `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	ErrorCode        *string `json:"error_code"`
	ErrorDescription *string `json:"error_description"`
}

type orderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
}

// EventID prefers the gateway's delivery id and falls back to a digest of
// the body.
func EventID(header string, body []byte) string {
	if id := strings.TrimSpace(header); id != "" {
		return id
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ParseEvent never fails: undecodable bodies yield an Event with an empty
// Type so the delivery is still recorded.
func ParseEvent(eventID string, body []byte) *Event {
	evt := &Event{ID: eventID}

	var env envelope
	if !json.Valid(body) || json.Unmarshal(body, &env) != nil {
		raw, _ := json.Marshal(map[string]string{"raw": string(body)})
		evt.Payload = raw
		return evt
	}
	evt.Payload = json.RawMessage(body)
	evt.Type = strings.TrimSpace(env.Event)

	if p := env.Payload.Payment; p != nil {
		evt.RazorpayPaymentID = p.Entity.ID
		evt.RazorpayOrderID = p.Entity.OrderID
		evt.AmountMinor = p.Entity.Amount
		evt.Currency = p.Entity.Currency
		if p.Entity.ErrorCode != nil {
			evt.ErrorCode = *p.Entity.ErrorCode
		}
		if p.Entity.ErrorDescription != nil {
			evt.ErrorDescription = *p.Entity.ErrorDescription
		}
	}
	if o := env.Payload.Order; o != nil {
		if evt.RazorpayOrderID == "" {
			evt.RazorpayOrderID = o.Entity.ID
		}
		if evt.AmountMinor == 0 {
			evt.AmountMinor = o.Entity.AmountPaid
		}
		if evt.Currency == "" {
			evt.Currency = o.Entity.Currency
		}
	}
	return evt
}
