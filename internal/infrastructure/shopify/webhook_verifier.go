package shopify

import (
	"errors"
	"net/http"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// HmacHeader carries the base64 HMAC-SHA256 of a webhook body
const HmacHeader = "X-Shopify-Hmac-Sha256"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// WebhookVerifier checks webhook signatures against the app's shared secret
type WebhookVerifier struct {
	app goshopify.App
}

// NewWebhookVerifier creates a verifier for secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{app: goshopify.App{ApiSecret: secret}}
}

// Verify checks the request signature. The request body is restored so it
// can be read again by the caller.
func (v *WebhookVerifier) Verify(r *http.Request) error {
	if r.Header.Get(HmacHeader) == "" {
		return ErrMissingSignature
	}
	if !v.app.VerifyWebhookRequest(r) {
		return ErrInvalidSignature
	}
	return nil
}
