package security

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SessionKeySize is the length in bytes of a derived session key.
const SessionKeySize = 32

// MinSecretSize is the minimum accepted length of the server secret.
const MinSecretSize = 32

const sessionKeyInfo = "playlog session key v1|"

// ErrWeakSecret is returned when the server secret is shorter than MinSecretSize.
var ErrWeakSecret = errors.New("session key secret must be at least 32 bytes")

// SessionKeyDeriver derives per-session keys from a server secret.
//
// The key for a session is HKDF-SHA256(secret, info = "playlog session key v1|" + sessionID).
// It is handed to the client once, when the session is created, and is never stored:
// the server recomputes it whenever it has to verify an event submission. Rotating the
// secret therefore invalidates every outstanding session key.
type SessionKeyDeriver struct {
	secret []byte
}

// NewSessionKeyDeriver returns a deriver for secret. The secret is copied.
func NewSessionKeyDeriver(secret []byte) (*SessionKeyDeriver, error) {
	if len(secret) < MinSecretSize {
		return nil, ErrWeakSecret
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SessionKeyDeriver{secret: s}, nil
}

// Derive returns the session key for sessionID.
func (d *SessionKeyDeriver) Derive(sessionID string) []byte {
	r := hkdf.New(sha256.New, d.secret, nil, []byte(sessionKeyInfo+sessionID))
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255*HashLen bytes of output.
		panic(err)
	}
	return key
}
