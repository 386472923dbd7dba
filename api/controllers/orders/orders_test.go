package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	ordersvc "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/shipments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type fakeCheckout struct {
	address checkout.AddressInput
	err     error
}

func (f *fakeCheckout) Checkout(_ context.Context, _ types.Shopper, address checkout.AddressInput) (*models.Order, error) {
	f.address = address
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now().UTC()
	return &models.Order{
		ID:        uuid.New(),
		Status:    enums.OrderStatusPendingPayment,
		Subtotal:  decimal.RequireFromString("250"),
		Currency:  enums.CurrencyINR,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type fakeReader struct {
	params pagination.Params
	views  map[uuid.UUID]ordersvc.View
}

func (f *fakeReader) Get(_ context.Context, _ types.Shopper, orderID uuid.UUID) (*ordersvc.View, error) {
	view, ok := f.views[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &view, nil
}

func (f *fakeReader) List(_ context.Context, _ types.Shopper, params pagination.Params) (*pagination.Page[ordersvc.View], error) {
	f.params = params
	items := make([]ordersvc.View, 0, len(f.views))
	for _, v := range f.views {
		items = append(items, v)
	}
	return &pagination.Page[ordersvc.View]{Items: items, NextCursor: "next"}, nil
}

type fakeTracker struct{}

func (fakeTracker) Tracking(_ context.Context, _ types.Shopper, orderID uuid.UUID) (*shipments.TrackingView, error) {
	return &shipments.TrackingView{ID: orderID, Status: enums.OrderStatusPaid}, nil
}

func (fakeTracker) EstimateDelivery(pincode string) (*shipments.Estimate, error) {
	if len(pincode) != 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pincode")
	}
	return &shipments.Estimate{Pincode: pincode, MinDays: 2, MaxDays: 4, EstimatedDate: "2026-01-05"}, nil
}

func newOrdersRouter(co Checkouter, reader Reader, tracker Tracker) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/checkout/", Checkout(co, nil))
	r.Get("/orders/", List(reader, nil))
	r.Get("/orders/shipping/estimate/", ShippingEstimate(tracker, nil))
	r.Get("/orders/{orderId}/", Detail(reader, nil))
	r.Get("/orders/{orderId}/tracking/", Tracking(tracker, nil))
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(method, path, strings.NewReader(body)))
	return resp
}

const addressBody = `{"full_name":"Asha Rao","line1":"12 MG Road","city":"Bengaluru","state":"KA","postal_code":"560001","phone":"9999999999"}`

func TestCheckoutCreatesOrder(t *testing.T) {
	co := &fakeCheckout{}
	resp := do(newOrdersRouter(co, &fakeReader{}, fakeTracker{}), http.MethodPost, "/orders/checkout/", addressBody)

	require.Equal(t, http.StatusCreated, resp.Code)
	var body struct {
		Data ordersvc.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "250.00", body.Data.Subtotal)
	require.Equal(t, enums.OrderStatusPendingPayment, body.Data.Status)
	require.Equal(t, "Asha Rao", co.address.FullName)
}

func TestCheckoutValidatesAddress(t *testing.T) {
	resp := do(newOrdersRouter(&fakeCheckout{}, &fakeReader{}, fakeTracker{}), http.MethodPost, "/orders/checkout/", `{"full_name":"Asha"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "line1")
}

func TestCheckoutEmptyCart(t *testing.T) {
	co := &fakeCheckout{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	resp := do(newOrdersRouter(co, &fakeReader{}, fakeTracker{}), http.MethodPost, "/orders/checkout/", addressBody)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), string(pkgerrors.CodeEmptyCart))
}

func TestListPassesPagination(t *testing.T) {
	reader := &fakeReader{views: map[uuid.UUID]ordersvc.View{}}
	resp := do(newOrdersRouter(&fakeCheckout{}, reader, fakeTracker{}), http.MethodGet, "/orders/?limit=5&cursor=abc", "")

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, reader.params)
	require.Contains(t, resp.Body.String(), `"next_cursor":"next"`)
}

func TestDetailNotFound(t *testing.T) {
	reader := &fakeReader{views: map[uuid.UUID]ordersvc.View{}}
	resp := do(newOrdersRouter(&fakeCheckout{}, reader, fakeTracker{}), http.MethodGet, "/orders/"+uuid.NewString()+"/", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDetailFound(t *testing.T) {
	id := uuid.New()
	reader := &fakeReader{views: map[uuid.UUID]ordersvc.View{id: {ID: id, Status: enums.OrderStatusPaid}}}
	resp := do(newOrdersRouter(&fakeCheckout{}, reader, fakeTracker{}), http.MethodGet, "/orders/"+id.String()+"/", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), id.String())
}

func TestTrackingAndEstimate(t *testing.T) {
	router := newOrdersRouter(&fakeCheckout{}, &fakeReader{}, fakeTracker{})

	tracking := do(router, http.MethodGet, "/orders/"+uuid.NewString()+"/tracking/", "")
	require.Equal(t, http.StatusOK, tracking.Code)
	require.Contains(t, tracking.Body.String(), `"status":"PAID"`)

	estimate := do(router, http.MethodGet, "/orders/shipping/estimate/?pincode=560001", "")
	require.Equal(t, http.StatusOK, estimate.Code)
	require.Contains(t, estimate.Body.String(), `"min_days":2`)

	bad := do(router, http.MethodGet, "/orders/shipping/estimate/?pincode=12", "")
	require.Equal(t, http.StatusBadRequest, bad.Code)
}
