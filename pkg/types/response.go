package types

// DataEnvelope wraps every successful storefront response body.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public half of a failed request. Details carry field
// problems or gateway codes, and only for error codes that allow them.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// Ack answers payment gateway callbacks. Razorpay only looks at the status
// code, so the body stays outside the data envelope.
type Ack struct {
	Status string `json:"status"`
}

func Acknowledged() Ack {
	return Ack{Status: "ok"}
}
