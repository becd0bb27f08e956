package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const signaturePrefix = "sha256="

// WebhookVerifier checks the X-Shopify-Hmac-Sha256 header of order notifications.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the shared webhook secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign returns the header value expected for body.
func (v *WebhookVerifier) Sign(body []byte) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write(body)
	return signaturePrefix + base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Verify compares the signature header against the raw body in constant time.
func (v *WebhookVerifier) Verify(body []byte, header string) error {
	if header == "" {
		return &AuthError{Reason: "missing signature header"}
	}
	if len(v.secret) == 0 {
		return &AuthError{Reason: "webhook secret not configured"}
	}

	expected := v.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return &AuthError{Reason: "signature mismatch"}
	}
	return nil
}
