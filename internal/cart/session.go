package cart

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Cart-Session"
	SessionCookie = "cart_session"
)

var sessionTokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// NewSessionToken returns a fresh 32 character guest token.
func NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidSessionToken rejects tokens that are empty or carry unexpected characters.
func ValidSessionToken(token string) bool {
	return sessionTokenRe.MatchString(token)
}
