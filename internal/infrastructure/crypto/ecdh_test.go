package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"golang.org/x/crypto/hkdf"

	"keygate/internal/domain/auth"
)

// encryptAsClient mirrors what a browser client does: generate an ephemeral
// key pair, agree with the server JWK, derive the AES key and seal the
// password with the sid as AAD.
func encryptAsClient(t *testing.T, serverJWK auth.ECPublicKeyJWK, sid, password string) (auth.ECPublicKeyJWK, string, string) {
	t.Helper()

	clientKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}

	serverPub, err := jwkToPublicKey(serverJWK)
	if err != nil {
		t.Fatalf("parse server JWK: %v", err)
	}
	ecdhClient, err := clientKey.ECDH()
	if err != nil {
		t.Fatalf("client key agreement form: %v", err)
	}
	ecdhServer, err := serverPub.ECDH()
	if err != nil {
		t.Fatalf("server key agreement form: %v", err)
	}
	shared, err := ecdhClient.ECDH(ecdhServer)
	if err != nil {
		t.Fatalf("key agreement: %v", err)
	}

	kdf := hkdf.New(sha256.New, shared, []byte(sid), []byte(hkdfInfo))
	key := make([]byte, derivedKeyLen)
	if _, err := io.ReadFull(kdf, key); err != nil {
		t.Fatalf("derive key: %v", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("new gcm: %v", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("nonce: %v", err)
	}
	ct := gcm.Seal(nil, nonce, []byte(password), []byte(sid))

	clientJWK := auth.ECPublicKeyJWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(coord(clientKey.PublicKey.X)),
		Y:   base64.RawURLEncoding.EncodeToString(coord(clientKey.PublicKey.Y)),
	}
	return clientJWK,
		base64.RawURLEncoding.EncodeToString(nonce),
		base64.RawURLEncoding.EncodeToString(ct)
}

func TestCipherExchangeRoundTrip(t *testing.T) {
	exchange := NewCipherExchange()
	const sid = "cipher-sid-1"

	privPEM, serverJWK, err := exchange.GenerateSessionKeys(sid)
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}
	if serverJWK.Kty != "EC" || serverJWK.Crv != "P-256" || serverJWK.Use != "enc" {
		t.Errorf("unexpected server JWK: %+v", serverJWK)
	}

	clientJWK, nonce, ct := encryptAsClient(t, serverJWK, sid, "s3cret-password")

	got, err := exchange.Decrypt(privPEM, clientJWK, sid, nonce, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "s3cret-password" {
		t.Errorf("plaintext = %q", got)
	}
}

func TestCipherExchangePaddedBase64(t *testing.T) {
	exchange := NewCipherExchange()
	const sid = "cipher-sid-2"

	privPEM, serverJWK, err := exchange.GenerateSessionKeys(sid)
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}

	clientJWK, nonce, ct := encryptAsClient(t, serverJWK, sid, "pw")

	// Re-encode with padding; both forms must be accepted.
	nb, _ := base64.RawURLEncoding.DecodeString(nonce)
	cb, _ := base64.RawURLEncoding.DecodeString(ct)
	got, err := exchange.Decrypt(privPEM, clientJWK, sid,
		base64.URLEncoding.EncodeToString(nb), base64.URLEncoding.EncodeToString(cb))
	if err != nil {
		t.Fatalf("Decrypt with padded input: %v", err)
	}
	if got != "pw" {
		t.Errorf("plaintext = %q", got)
	}
}

func TestCipherExchangeSIDBinding(t *testing.T) {
	exchange := NewCipherExchange()
	const sid = "cipher-sid-3"

	privPEM, serverJWK, err := exchange.GenerateSessionKeys(sid)
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}
	clientJWK, nonce, ct := encryptAsClient(t, serverJWK, sid, "pw")

	// A different sid changes both the derived key and the AAD.
	if _, err := exchange.Decrypt(privPEM, clientJWK, "other-sid", nonce, ct); !errors.Is(err, auth.ErrCipherSession) {
		t.Errorf("decrypt under wrong sid: err = %v, want cipher session error", err)
	}
}

func TestCipherExchangeTamperedCiphertext(t *testing.T) {
	exchange := NewCipherExchange()
	const sid = "cipher-sid-4"

	privPEM, serverJWK, err := exchange.GenerateSessionKeys(sid)
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}
	clientJWK, nonce, ct := encryptAsClient(t, serverJWK, sid, "pw")

	raw, _ := base64.RawURLEncoding.DecodeString(ct)
	raw[0] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := exchange.Decrypt(privPEM, clientJWK, sid, nonce, tampered); !errors.Is(err, auth.ErrCipherSession) {
		t.Errorf("tampered ciphertext: err = %v, want cipher session error", err)
	}
}

func TestCipherExchangeRejectsBadInputs(t *testing.T) {
	exchange := NewCipherExchange()
	privPEM, serverJWK, err := exchange.GenerateSessionKeys("sid")
	if err != nil {
		t.Fatalf("GenerateSessionKeys: %v", err)
	}

	if _, err := exchange.Decrypt([]byte("not pem"), serverJWK, "sid", "AAAA", "AAAA"); !errors.Is(err, auth.ErrCipherSession) {
		t.Errorf("bad PEM: err = %v", err)
	}

	badJWK := auth.ECPublicKeyJWK{Kty: "RSA", Crv: "P-256"}
	if _, err := exchange.Decrypt(privPEM, badJWK, "sid", "AAAA", "AAAA"); !errors.Is(err, auth.ErrCipherSession) {
		t.Errorf("bad JWK type: err = %v", err)
	}

	clientJWK, _, ct := encryptAsClient(t, serverJWK, "sid", "pw")
	if _, err := exchange.Decrypt(privPEM, clientJWK, "sid", "!!!", ct); !errors.Is(err, auth.ErrCipherSession) {
		t.Errorf("bad nonce encoding: err = %v", err)
	}
}
