package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"time"
)

const (
	testIssuer   = "playlog-test"
	testAudience = "playlog-export-test"
)

// Generated once per test binary.
var testKey = sync.OnceValues(func() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
})

// TestKeyPEM returns the PEM-encoded test key pair (PKCS#8 private, PKIX public).
// For unit tests only.
func TestKeyPEM() (private, public string, err error) {
	key, err := testKey()
	if err != nil {
		return "", "", err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", err
	}
	private = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	public = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return private, public, nil
}

// NewTestTokenProvider returns an ES256 TokenProvider over the test key pair.
// For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, err := testKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, &key.PublicKey, testIssuer, testAudience, time.Hour), nil
}
