package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when a PEM block, key type or hex key is invalid.
var ErrInvalidKey = errors.New("invalid key")

const (
	jwtRS256 = "RS256"
	jwtES256 = "ES256"
)

// ParseHexKey decodes a hex-encoded symmetric key (release keys, the session secret).
// Surrounding whitespace is ignored; the decoded key must be at least minLen bytes.
func ParseHexKey(s string, minLen int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(b) < minLen {
		return nil, ErrInvalidKey
	}
	return b, nil
}

// LoadPEM returns s itself when it is inline PEM, otherwise the content of the file at path s.
// Literal "\n" sequences in inline PEM (common in env files) are turned into newlines.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

func decodePEM(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses an operator signing key: PKCS#1 RSA, SEC 1 EC or PKCS#8, inline or from a file.
// Only keys KeyAlg can name are accepted.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, ErrInvalidKey
	}
	signer, ok := key.(crypto.Signer)
	if !ok || KeyAlg(signer.Public()) == "" {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// ParsePublicKey parses the key operator tokens are verified with, inline or from a file.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	var pub any
	switch block.Type {
	case "PUBLIC KEY":
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil || KeyAlg(pub) == "" {
		return nil, ErrInvalidKey
	}
	return pub, nil
}

// KeyAlg names the JWT algorithm for pub. ECDSA keys must be on P-256.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return jwtRS256
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return jwtES256
		}
	}
	return ""
}
