package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/domain/auth"
)

// Signer mints ES256 JWTs under a single active signing key and publishes the
// matching JWKS document. Key rotation is not modeled: exactly one key, one kid.
type Signer struct {
	kid string
	key *ecdsa.PrivateKey
}

// NewSigner constructs a Signer from a PEM-encoded P-256 private key.
func NewSigner(kid string, privateKeyPEM []byte) (*Signer, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key must be P-256")
	}
	return &Signer{kid: kid, key: key}, nil
}

// NewEphemeralSigner generates a throwaway signing key. Tokens do not survive
// a restart; only suitable for development.
func NewEphemeralSigner(kid string) (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Signer{kid: kid, key: key}, nil
}

// GenerateSigningKeyPEM produces a PKCS#8 PEM private key suitable for the
// AUTH_JWT_PRIVATE_KEY setting.
func GenerateSigningKeyPEM() ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// KID returns the active key id.
func (s *Signer) KID() string { return s.kid }

// Mint signs the claim set as a compact JWS. The header always carries the
// active kid.
func (s *Signer) Mint(claims auth.JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims.Map()))
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// JWKS returns the published key set: exactly one signing key.
func (s *Signer) JWKS() auth.JWKS {
	pub := s.key.PublicKey
	return auth.JWKS{Keys: []auth.ECPublicKeyJWK{{
		Kty: "EC",
		Use: "sig",
		Crv: "P-256",
		Kid: s.kid,
		X:   base64.RawURLEncoding.EncodeToString(coord(pub.X)),
		Y:   base64.RawURLEncoding.EncodeToString(coord(pub.Y)),
		Alg: "ES256",
	}}}
}

// Keyfunc verifies tokens minted by this signer. It rejects non-ES256
// algorithms and unknown kids.
func (s *Signer) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, _ := token.Header["kid"].(string); kid != s.kid {
		return nil, fmt.Errorf("unknown kid %q", token.Header["kid"])
	}
	return &s.key.PublicKey, nil
}
