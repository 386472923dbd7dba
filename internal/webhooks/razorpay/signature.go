package razorpaywebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/razorpay/razorpay-go/utils"
)

// VerifySignature checks the X-Razorpay-Signature value against the raw body.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}

// Sign produces the signature header value Razorpay would send for body.
// The SDK only verifies, so fixtures and local replay tooling sign here.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
