package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// Sign returns the X-Licadvisor-Signature value for a delivery: the hex
// HMAC-SHA256 of "<deliveryID>.<payload>" under secret.
func Sign(deliveryID string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(deliveryID))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign. Receivers call it with the
// X-Licadvisor-Delivery header and the raw request body.
func Verify(deliveryID string, payload []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	expected := Sign(deliveryID, payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
