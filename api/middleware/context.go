package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxCartSession contextKey = "cart_session"
)

// UserIDFromContext returns the authenticated user, or nil for guests.
func UserIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok && v != uuid.Nil {
		return &v
	}
	return nil
}

func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartSession).(string); ok {
		return v
	}
	return ""
}

// ShopperFromContext assembles the identity resolved by OptionalAuth and CartSession.
func ShopperFromContext(ctx context.Context) types.Shopper {
	return types.Shopper{
		UserID:    UserIDFromContext(ctx),
		SessionID: CartSessionFromContext(ctx),
	}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithCartSession injects the guest cart token into the context.
func WithCartSession(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartSession, token)
}
