// Package webhook ingests payment-processor events into the credit ledger.
// Events are signature-checked and deduplicated before their ledger effect
// is applied exactly once.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signature header format: "sha256=<hex hmac of the raw payload>".
const signaturePrefix = "sha256="

// VerifySignature checks the payload's HMAC-SHA256 signature against the
// shared secret using a constant-time comparison.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hmac.Equal(provided, mac.Sum(nil))
}

// SignPayload computes the signature header value for a payload. Used by
// tests and local tooling.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
