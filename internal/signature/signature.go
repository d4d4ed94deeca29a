// Package signature implements HMAC-SHA256 signing of webhook payloads.
// The signature always covers the exact bytes put on the wire, so callers
// must sign after any payload truncation, never before.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sha256="

// Sign computes the signature header value for the given payload bytes.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig matches the payload under the given secret.
// Comparison is constant-time; a malformed signature simply returns false.
func Verify(payload []byte, sig, secret string) bool {
	if !strings.HasPrefix(sig, prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(sig, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
