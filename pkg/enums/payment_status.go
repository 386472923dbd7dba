package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a gateway payment.
type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "CREATED"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusCreated,
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

// A FAILED attempt can still settle: the shopper may retry against the same
// gateway order and the capture arrives later.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated: {PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid},
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further settlement can change the payment.
func (p PaymentStatus) IsTerminal() bool {
	return p.IsValid() && len(paymentTransitions[p]) == 0
}

// CanTransitionTo reports whether moving from p to next is legal.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PaymentStatusesLeadingTo lists the statuses that may move to next, in
// declaration order. Repositories use it as the compare-and-swap guard.
func PaymentStatusesLeadingTo(next PaymentStatus) []PaymentStatus {
	var sources []PaymentStatus
	for _, candidate := range validPaymentStatuses {
		if candidate.CanTransitionTo(next) {
			sources = append(sources, candidate)
		}
	}
	return sources
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
