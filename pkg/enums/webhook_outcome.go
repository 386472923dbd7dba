package enums

// WebhookOutcome records what processing a verified gateway delivery did.
type WebhookOutcome string

const (
	WebhookOutcomeApplied         WebhookOutcome = "applied"
	WebhookOutcomeDuplicate       WebhookOutcome = "duplicate"
	WebhookOutcomeUnmatched       WebhookOutcome = "unmatched"
	WebhookOutcomeAmountMismatch  WebhookOutcome = "amount_mismatch"
	WebhookOutcomeOrderNotPending WebhookOutcome = "order_not_pending"
	WebhookOutcomePaymentFailed   WebhookOutcome = "payment_failed"
	WebhookOutcomeMalformed       WebhookOutcome = "malformed"
	WebhookOutcomeIgnored         WebhookOutcome = "ignored"
)

// String implements fmt.Stringer.
func (w WebhookOutcome) String() string {
	return string(w)
}

// Changed reports whether the outcome mutated payment or order state.
func (w WebhookOutcome) Changed() bool {
	switch w {
	case WebhookOutcomeApplied, WebhookOutcomeOrderNotPending, WebhookOutcomePaymentFailed:
		return true
	default:
		return false
	}
}
