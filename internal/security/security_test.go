package security

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"username":"pika"}`),
		[]byte(`[]`),
		{},
		bytes.Repeat([]byte("x"), 4096),
	}
	key := []byte("release-key-0123456789abcdef")
	for _, p := range payloads {
		digest := Sign(p, key)
		if len(digest) != 64 {
			t.Fatalf("digest length: want 64 hex chars, got %d", len(digest))
		}
		if !Verify(p, digest, key) {
			t.Errorf("Verify(%q) with signing key should succeed", p)
		}
		if !Verify(p, strings.ToUpper(digest), key) {
			t.Errorf("Verify should ignore hex case")
		}
	}
}

func TestVerify_WrongKeyFails(t *testing.T) {
	payload := []byte(`{"user_id":"u"}`)
	digest := Sign(payload, []byte("key-one"))
	for _, other := range [][]byte{[]byte("key-two"), []byte("key-on"), []byte("key-one!"), nil} {
		if Verify(payload, digest, other) {
			t.Errorf("Verify with key %q should fail", other)
		}
	}
}

func TestVerify_MutatedPayloadFails(t *testing.T) {
	key := []byte("k")
	digest := Sign([]byte(`{"a":1}`), key)
	if Verify([]byte(`{"a":2}`), digest, key) {
		t.Error("Verify with mutated payload should fail")
	}
	if Verify([]byte(`{"a":1}`), "", key) {
		t.Error("Verify with empty digest should fail")
	}
}

func TestSign_MatchesPayloadThenKeyConcatenation(t *testing.T) {
	// Moving bytes between payload and key must not change the digest: the scheme hashes the concatenation.
	if Sign([]byte("ab"), []byte("cd")) != Sign([]byte("abc"), []byte("d")) {
		t.Error("digest should be over payload||key")
	}
}

func TestSessionKeyDeriver(t *testing.T) {
	secret := bytes.Repeat([]byte{7}, MinSecretSize)
	d, err := NewSessionKeyDeriver(secret)
	if err != nil {
		t.Fatalf("NewSessionKeyDeriver: %v", err)
	}
	k1 := d.Derive("8d4e2a8f-6d37-4c61-9ac4-2f3f1f6c1e2a")
	k2 := d.Derive("8d4e2a8f-6d37-4c61-9ac4-2f3f1f6c1e2a")
	k3 := d.Derive("0b1b9f4c-8f0e-4a53-9d8e-5b7e2a6c9d10")
	if len(k1) != SessionKeySize {
		t.Fatalf("key size: want %d, got %d", SessionKeySize, len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Error("derivation must be deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("different sessions must get different keys")
	}

	other, _ := NewSessionKeyDeriver(bytes.Repeat([]byte{8}, MinSecretSize))
	if bytes.Equal(k1, other.Derive("8d4e2a8f-6d37-4c61-9ac4-2f3f1f6c1e2a")) {
		t.Error("different secrets must give different keys")
	}

	secret[0] = 0
	if !bytes.Equal(k1, d.Derive("8d4e2a8f-6d37-4c61-9ac4-2f3f1f6c1e2a")) {
		t.Error("deriver must not alias the caller's secret slice")
	}
}

func TestNewSessionKeyDeriver_WeakSecret(t *testing.T) {
	if _, err := NewSessionKeyDeriver(make([]byte, MinSecretSize-1)); err != ErrWeakSecret {
		t.Errorf("want ErrWeakSecret, got %v", err)
	}
}

func TestParseHexKey(t *testing.T) {
	key, err := ParseHexKey("  d5c456a91eb5f69cf265510f6d6430b2  ", 16)
	if err != nil {
		t.Fatalf("ParseHexKey: %v", err)
	}
	if len(key) != 16 {
		t.Errorf("len: want 16, got %d", len(key))
	}
	for _, bad := range []string{"", "zz", "abcd"} {
		if _, err := ParseHexKey(bad, 16); err != ErrInvalidKey {
			t.Errorf("ParseHexKey(%q): want ErrInvalidKey, got %v", bad, err)
		}
	}
}

func TestLoadPEM(t *testing.T) {
	b, err := LoadPEM(`-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----`)
	if err != nil {
		t.Fatalf("LoadPEM inline: %v", err)
	}
	if !bytes.Contains(b, []byte("\nabc\n")) {
		t.Errorf("literal \\n should become newlines, got %q", b)
	}

	_, pubPEM, err := TestKeyPEM()
	if err != nil {
		t.Fatalf("TestKeyPEM: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pub.pem")
	if err := os.WriteFile(path, []byte(pubPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ParsePublicKey(path); err != nil {
		t.Errorf("ParsePublicKey from file: %v", err)
	}
	if _, err := LoadPEM("   "); err != ErrInvalidKey {
		t.Errorf("LoadPEM blank: want ErrInvalidKey, got %v", err)
	}
}

func TestParseKeys(t *testing.T) {
	privPEM, pubPEM, err := TestKeyPEM()
	if err != nil {
		t.Fatalf("TestKeyPEM: %v", err)
	}
	priv, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if KeyAlg(priv.Public()) != "ES256" {
		t.Errorf("KeyAlg: want ES256, got %q", KeyAlg(priv.Public()))
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if KeyAlg(pub) != "ES256" {
		t.Errorf("KeyAlg(public): want ES256, got %q", KeyAlg(pub))
	}

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	rsaPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})
	rsaPriv, err := ParsePrivateKey(string(rsaPEM))
	if err != nil {
		t.Fatalf("ParsePrivateKey(PKCS#1): %v", err)
	}
	if KeyAlg(rsaPriv.Public()) != "RS256" {
		t.Errorf("KeyAlg: want RS256, got %q", KeyAlg(rsaPriv.Public()))
	}

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if KeyAlg(&p384.PublicKey) != "" {
		t.Error("P-384 keys have no ES256 mapping")
	}
	if KeyAlg(nil) != "" {
		t.Error("KeyAlg(nil) should be empty")
	}
	if _, err := ParsePrivateKey("-----BEGIN CERTIFICATE-----\nMII\n-----END CERTIFICATE-----"); err == nil {
		t.Error("ParsePrivateKey should reject non-key PEM")
	}
}

func TestTokenProvider_IssueAndValidateExport(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	releases := []string{"de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e"}
	token, exp, err := p.IssueExport("analyst@example.com", "analyst", releases)
	if err != nil {
		t.Fatalf("IssueExport: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	op, err := p.ValidateExport(token)
	if err != nil {
		t.Fatalf("ValidateExport: %v", err)
	}
	if op.Subject != "analyst@example.com" || op.Role != "analyst" || len(op.Releases) != 1 || op.Releases[0] != releases[0] {
		t.Errorf("ValidateExport: got %+v", op)
	}
	if op.TokenID == "" {
		t.Error("token id should be set")
	}
}

func TestTokenProvider_ValidateExportRejects(t *testing.T) {
	p, _ := NewTestTokenProvider()
	if _, err := p.ValidateExport("not-a-token"); err != ErrInvalidToken {
		t.Errorf("garbage: want ErrInvalidToken, got %v", err)
	}

	key, err := testKey()
	if err != nil {
		t.Fatalf("testKey: %v", err)
	}
	otherAudience := NewTokenProvider(key, &key.PublicKey, testIssuer, "someone-else", time.Hour)
	token, _, err := otherAudience.IssueExport("op", "", nil)
	if err != nil {
		t.Fatalf("IssueExport: %v", err)
	}
	if _, err := p.ValidateExport(token); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}

	expired := NewTokenProvider(key, &key.PublicKey, testIssuer, testAudience, -time.Minute)
	token, _, _ = expired.IssueExport("op", "", nil)
	if _, err := p.ValidateExport(token); err != ErrInvalidToken {
		t.Errorf("expired: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateOnly(t *testing.T) {
	key, err := testKey()
	if err != nil {
		t.Fatalf("testKey: %v", err)
	}
	p := NewTokenProvider(nil, &key.PublicKey, "i", "a", time.Hour)
	if _, _, err := p.IssueExport("op", "", nil); err != ErrNoSigningKey {
		t.Errorf("want ErrNoSigningKey, got %v", err)
	}
}
