package types

import (
	"strings"

	"github.com/google/uuid"
)

// Shopper identifies who is acting on a cart or order: an authenticated user,
// a guest session, or both when a signed-in user still carries a cookie.
type Shopper struct {
	UserID    *uuid.UUID
	SessionID string
}

// IsAuthenticated reports whether the shopper carries a user identity.
func (s Shopper) IsAuthenticated() bool {
	return s.UserID != nil && *s.UserID != uuid.Nil
}

// IsAnonymous reports whether the shopper has neither identity.
func (s Shopper) IsAnonymous() bool {
	return !s.IsAuthenticated() && strings.TrimSpace(s.SessionID) == ""
}
