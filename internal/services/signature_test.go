package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
)

func referenceSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifierAcceptsValidSignature(t *testing.T) {
	secret := "shpss_test_secret"
	bodies := [][]byte{
		[]byte(`{"id":1001,"line_items":[]}`),
		[]byte(``),
		[]byte("{\"id\": \"1001\",\n \"note\": \"zażółć\"}"),
	}

	v := NewWebhookVerifier(secret)
	for _, body := range bodies {
		header := referenceSignature(secret, body)
		if got := v.Sign(body); got != header {
			t.Errorf("Sign = %q, want %q", got, header)
		}
		if err := v.Verify(body, header); err != nil {
			t.Errorf("Verify(%q) unexpected error: %v", body, err)
		}
	}
}

func TestWebhookVerifierRejectsBodyMutations(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":1001,"line_items":[{"id":1}]}`)
	header := referenceSignature(secret, body)
	v := NewWebhookVerifier(secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		err := v.Verify(mutated, header)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("byte %d mutation: err = %v, want AuthError", i, err)
		}
	}
}

func TestWebhookVerifierRejectsHeaderMutations(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":1001}`)
	header := referenceSignature(secret, body)
	v := NewWebhookVerifier(secret)

	for i := range header {
		mutated := []byte(header)
		mutated[i] ^= 0x01
		if err := v.Verify(body, string(mutated)); err == nil {
			t.Fatalf("header byte %d mutation accepted", i)
		}
	}
}

func TestWebhookVerifierRejects(t *testing.T) {
	body := []byte(`{"id":1001}`)
	raw := referenceSignature("secret", body)[len("sha256="):]

	tests := []struct {
		name   string
		secret string
		header string
	}{
		{"missing header", "secret", ""},
		{"missing prefix", "secret", raw},
		{"wrong secret", "other", referenceSignature("secret", body)},
		{"empty secret", "", referenceSignature("", body)},
		{"hex encoding", "secret", "sha256=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWebhookVerifier(tt.secret).Verify(body, tt.header)
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("err = %v, want AuthError", err)
			}
		})
	}
}
