package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or not for this service.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSigningKey is returned when issuing without a private key.
	ErrNoSigningKey = errors.New("token provider has no signing key")
)

// AllReleases in the releases claim grants export access to every release.
const AllReleases = "*"

// ExportClaims are the claims of an operator export token.
type ExportClaims struct {
	jwt.RegisteredClaims
	// Releases lists the release ids the operator may export, or AllReleases.
	Releases []string `json:"releases"`
	// Role is free-form and passed to the export policy (e.g. "analyst", "admin").
	Role string `json:"role,omitempty"`
}

// Operator is the validated identity carried by an export token.
type Operator struct {
	Subject  string
	Role     string
	Releases []string
	TokenID  string
}

// TokenProvider issues and validates operator export tokens (RS256 or ES256).
// A provider built without a private key can only validate.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewTokenProvider returns a TokenProvider. privateKey may be nil for validate-only use.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// IssueExport issues an export token for subject, limited to releases.
func (p *TokenProvider) IssueExport(subject, role string, releases []string) (token string, expiresAt time.Time, err error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrNoSigningKey
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := ExportClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Releases: releases,
		Role:     role,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	method := jwt.GetSigningMethod(KeyAlg(p.privateKey.Public()))
	if method == nil {
		return "", ErrInvalidKey
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

// ValidateExport parses and validates an export token (signature, exp, iss, aud).
// Only the algorithm matching the configured public key is accepted.
func (p *TokenProvider) ValidateExport(tokenString string) (*Operator, error) {
	alg := KeyAlg(p.publicKey)
	if alg == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &ExportClaims{}, func(*jwt.Token) (any, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*ExportClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Operator{
		Subject:  claims.Subject,
		Role:     claims.Role,
		Releases: slices.Clone(claims.Releases),
		TokenID:  claims.ID,
	}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
