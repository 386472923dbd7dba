package payments

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	paymentsvc "github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type Creator interface {
	CreatePayment(ctx context.Context, shopper types.Shopper, orderID uuid.UUID) (*paymentsvc.Result, error)
}

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// CreateRazorpayOrder opens a gateway order for a pending order the caller owns.
func CreateRazorpayOrder(svc Creator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment service unavailable"))
			return
		}
		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePayment(r.Context(), middleware.ShopperFromContext(r.Context()), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
