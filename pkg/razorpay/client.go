package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultTimeout       = 10 * time.Second
	operationCreateOrder = "create_order"

	testMode = "test"
	liveMode = "live"
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// orderAPI is the slice of the SDK's order resource the storefront uses.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client wraps the Razorpay SDK with the storefront's error codes and
// gateway metrics.
type Client struct {
	api     *rzp.Client
	orders  orderAPI
	keyID   string
	timeout time.Duration
	metrics *metrics.GatewayMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithBaseURL overrides the API host, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.api.Request.BaseURL = trimmed
		}
	}
}

// WithTimeout bounds every gateway call. The SDK only takes whole seconds,
// so the call context carries the exact deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	keySecret = strings.TrimSpace(keySecret)
	if keyID == "" || keySecret == "" {
		return nil, errCredentialsRequired
	}

	api := rzp.NewClient(keyID, keySecret)
	client := &Client{
		api:     api,
		orders:  api.Order,
		keyID:   keyID,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	api.Request.SetTimeout(sdkTimeout(client.timeout))
	return client, nil
}

// API returns the underlying SDK client.
func (c *Client) API() *rzp.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// KeyID is the public key handed to the checkout widget.
func (c *Client) KeyID() string {
	return c.keyID
}

// Mode reports whether the credentials are live or test keys.
func (c *Client) Mode() string {
	if c == nil {
		return ""
	}
	if strings.HasPrefix(c.keyID, "rzp_live_") {
		return liveMode
	}
	return testMode
}

// CreateOrderRequest is the payload for POST /v1/orders. Amount is in minor
// units (paise).
type CreateOrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

func (r CreateOrderRequest) data() map[string]interface{} {
	data := map[string]interface{}{
		"amount":   r.AmountMinor,
		"currency": r.Currency,
	}
	if r.Receipt != "" {
		data["receipt"] = r.Receipt
	}
	if len(r.Notes) > 0 {
		data["notes"] = r.Notes
	}
	return data
}

// RemoteOrder is the gateway's view of an order.
type RemoteOrder struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	CreatedAt  int64  `json:"created_at"`
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder registers a remote order. Calls are never retried here.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway not configured")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	start := time.Now()
	order, result, err := c.createOrder(ctx, req)
	c.metrics.Observe(operationCreateOrder, result, time.Since(start))
	return order, err
}

func (c *Client) createOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// The SDK takes no context; the buffered channel lets an abandoned call
	// finish without blocking.
	done := make(chan createResult, 1)
	go func() {
		body, err := c.orders.Create(req.data(), nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return nil, "transport_error", pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, ctx.Err(), "razorpay request timed out")
	case res = <-done:
	}
	if res.err != nil {
		result, err := classify(res.err)
		return nil, result, err
	}

	order, err := decodeOrder(res.body)
	if err != nil {
		return nil, "decode_error", err
	}
	return order, "ok", nil
}

func decodeOrder(body map[string]interface{}) (*RemoteOrder, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode razorpay order")
	}
	var order RemoteOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode razorpay order")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "razorpay order missing id")
	}
	return &order, nil
}

// classify maps SDK errors onto storefront codes. Bad requests are the
// shopper's problem unless the gateway rejected our credentials.
func classify(err error) (string, error) {
	var badRequest *rzperrors.BadRequestError
	if errors.As(err, &badRequest) {
		if strings.Contains(strings.ToLower(err.Error()), "authentication") {
			return "auth_error", pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway credentials rejected")
		}
		return "bad_request", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment gateway rejected the order").
			WithDetails(map[string]any{"gateway_code": "BAD_REQUEST_ERROR"})
	}
	var gatewayErr *rzperrors.GatewayError
	if errors.As(err, &gatewayErr) {
		return "gateway_error", pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unavailable")
	}
	var serverErr *rzperrors.ServerError
	if errors.As(err, &serverErr) {
		return "server_error", pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unavailable")
	}
	return "transport_error", pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "razorpay request failed")
}

func sdkTimeout(timeout time.Duration) int16 {
	seconds := math.Ceil(timeout.Seconds())
	switch {
	case seconds < 1:
		return 1
	case seconds > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(seconds)
	}
}
