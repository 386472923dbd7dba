package enums

// OutboxDLQErrorReason records why the publisher parked an event instead of
// retrying it.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means the sink kept failing until the
	// attempt budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the row can never publish as
	// written, e.g. an unregistered event type or an undecodable payload.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// String implements fmt.Stringer; it doubles as the failure metric label.
func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}
