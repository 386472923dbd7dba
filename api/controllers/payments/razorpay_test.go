package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	paymentsvc "github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type fakeCreator struct {
	err     error
	orderID uuid.UUID
}

func (f *fakeCreator) CreatePayment(_ context.Context, _ types.Shopper, orderID uuid.UUID) (*paymentsvc.Result, error) {
	f.orderID = orderID
	if f.err != nil {
		return nil, f.err
	}
	return &paymentsvc.Result{
		OrderID:         orderID,
		PaymentID:       uuid.New(),
		RazorpayOrderID: "order_abc",
		Amount:          25000,
		Currency:        enums.CurrencyINR,
		RazorpayKeyID:   "rzp_test",
	}, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h(resp, httptest.NewRequest(http.MethodPost, "/orders/razorpay/create/", strings.NewReader(body)))
	return resp
}

func TestCreateRazorpayOrder(t *testing.T) {
	svc := &fakeCreator{}
	orderID := uuid.New()
	resp := post(CreateRazorpayOrder(svc, nil), `{"order_id":"`+orderID.String()+`"}`)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, orderID, svc.orderID)
	require.Contains(t, resp.Body.String(), `"amount":25000`)
	require.Contains(t, resp.Body.String(), `"razorpay_order_id":"order_abc"`)
}

func TestCreateRazorpayOrderErrorMapping(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeOrderNotPending:    http.StatusBadRequest,
		pkgerrors.CodeGatewayUnavailable: http.StatusServiceUnavailable,
		pkgerrors.CodeNotFound:           http.StatusNotFound,
	}
	for code, status := range cases {
		svc := &fakeCreator{err: pkgerrors.New(code, "x")}
		resp := post(CreateRazorpayOrder(svc, nil), `{"order_id":"`+uuid.NewString()+`"}`)
		require.Equal(t, status, resp.Code, code)
	}
}

func TestCreateRazorpayOrderRequiresOrderID(t *testing.T) {
	resp := post(CreateRazorpayOrder(&fakeCreator{}, nil), `{}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "order_id")
}
