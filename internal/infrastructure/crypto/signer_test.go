package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/domain/auth"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	signer, err := NewEphemeralSigner("test-kid-1")
	if err != nil {
		t.Fatalf("NewEphemeralSigner: %v", err)
	}
	return signer
}

func TestSignerMintAndVerify(t *testing.T) {
	signer := newTestSigner(t)

	claims := auth.NewUserClaims(auth.UserClaimsInput{
		Issuer:   "https://auth.local",
		Audience: "api://default",
		Subject:  "user-1",
		JTI:      "jti-1",
		TTL:      15 * time.Minute,
		SID:      "sid-1",
		SIDV:     1,
		Scopes:   auth.DefaultUserScopes(),
	})

	token, err := signer.Mint(claims)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token is not a compact JWS: %q", token)
	}

	parsed, err := jwt.Parse(token, signer.Keyfunc, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil || !parsed.Valid {
		t.Fatalf("parse minted token: %v", err)
	}
	if parsed.Header["kid"] != "test-kid-1" {
		t.Errorf("kid = %v", parsed.Header["kid"])
	}

	got := parsed.Claims.(jwt.MapClaims)
	if got["sub"] != "user-1" || got["sid"] != "sid-1" || got["token_use"] != "access" {
		t.Errorf("unexpected claims: %v", got)
	}
}

func TestSignerRejectsForeignToken(t *testing.T) {
	signer := newTestSigner(t)
	other := newTestSigner(t)

	claims := auth.NewUserClaims(auth.UserClaimsInput{
		Issuer: "https://auth.local", Audience: "a", Subject: "u", JTI: "j", TTL: time.Minute,
	})
	token, err := other.Mint(claims)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := jwt.Parse(token, signer.Keyfunc, jwt.WithValidMethods([]string{"ES256"})); err == nil {
		t.Errorf("token signed by a different key should not verify")
	}
}

func TestSignerRejectsUnknownKid(t *testing.T) {
	signer := newTestSigner(t)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{"sub": "u"})
	token.Header["kid"] = "someone-else"
	if _, err := signer.Keyfunc(token); err == nil {
		t.Errorf("unknown kid should be rejected")
	}

	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"})
	if _, err := signer.Keyfunc(hmacToken); err == nil {
		t.Errorf("non-ECDSA method should be rejected")
	}
}

func TestSignerJWKS(t *testing.T) {
	signer := newTestSigner(t)

	jwks := signer.JWKS()
	if len(jwks.Keys) != 1 {
		t.Fatalf("JWKS keys = %d, want 1", len(jwks.Keys))
	}
	key := jwks.Keys[0]
	if key.Kty != "EC" || key.Crv != "P-256" || key.Use != "sig" || key.Alg != "ES256" {
		t.Errorf("unexpected JWKS key: %+v", key)
	}
	if key.Kid != signer.KID() {
		t.Errorf("kid = %q, want %q", key.Kid, signer.KID())
	}
	if key.X == "" || key.Y == "" {
		t.Errorf("coordinates missing: %+v", key)
	}
}

func TestNewSignerFromGeneratedPEM(t *testing.T) {
	pemBytes, err := GenerateSigningKeyPEM()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPEM: %v", err)
	}
	signer, err := NewSigner("pem-kid", pemBytes)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if signer.KID() != "pem-kid" {
		t.Errorf("KID = %q", signer.KID())
	}
}
