package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartSession resolves the guest cart token from the X-Cart-Session header
// or the cart_session cookie. Guests without a usable token get a fresh one,
// echoed back in the header. A guest's cookie always ends up holding the
// resolved token.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if UserIDFromContext(r.Context()) == nil {
				if token == "" {
					token = cart.NewSessionToken()
					w.Header().Set(cart.SessionHeader, token)
				}
				if token != cookieToken(r) {
					http.SetCookie(w, &http.Cookie{
						Name:     cart.SessionCookie,
						Value:    token,
						Path:     "/",
						SameSite: http.SameSiteLaxMode,
					})
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithCartSession(r.Context(), token)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(cart.SessionHeader)); cart.ValidSessionToken(header) {
		return header
	}
	return cookieToken(r)
}

func cookieToken(r *http.Request) string {
	if cookie, err := r.Cookie(cart.SessionCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); cart.ValidSessionToken(value) {
			return value
		}
	}
	return ""
}
