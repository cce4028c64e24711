package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign returns the lower-case hex SHA-256 digest of payload followed by the raw key bytes.
// The key itself never travels with the request; both ends hold it.
func Sign(payload, key []byte) string {
	h := sha256.New()
	h.Write(payload)
	h.Write(key)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether digest is the signature of payload under key.
// Comparison is constant-time; hex case is ignored.
func Verify(payload []byte, digest string, key []byte) bool {
	if len(key) == 0 || digest == "" {
		return false
	}
	expected := Sign(payload, key)
	provided := strings.ToLower(strings.TrimSpace(digest))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
