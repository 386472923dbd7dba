package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	razorpaywebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"

	maxWebhookBytes = 1 << 20
)

type RazorpayWebhookService interface {
	Process(ctx context.Context, evt *razorpaywebhook.Event) (enums.WebhookOutcome, error)
}


// RazorpayWebhook verifies the delivery signature against the raw body and
// acknowledges every verified delivery, whatever its outcome. Processing
// errors answer 500 so the gateway redelivers.
func RazorpayWebhook(svc RazorpayWebhookService, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || strings.TrimSpace(secret) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "webhook secret not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(SignatureHeader))
		if !razorpaywebhook.VerifySignature(secret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid signature"))
			return
		}

		evt := razorpaywebhook.ParseEvent(razorpaywebhook.EventID(r.Header.Get(EventIDHeader), payload), payload)
		outcome, err := svc.Process(ctx, evt)
		if err != nil {
			// Only a failed transaction lands here. Razorpay redelivers on any
			// non-2xx, and the delivery guard was already released, so the
			// retry is processed from scratch.
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"webhook_event_id": evt.ID,
				"outcome":          string(outcome),
			})
			logg.Info(logCtx, "razorpay webhook acknowledged")
		}
		responses.WriteJSON(w, http.StatusOK, types.Acknowledged())
	}
}
