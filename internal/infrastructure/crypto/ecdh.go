package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"

	"keygate/internal/domain/auth"
)

// hkdfInfo binds derived keys to the password-login protocol version.
const hkdfInfo = "pwd-login-v1"

const derivedKeyLen = 32

// CipherExchange decrypts password envelopes using ECDH(P-256) key agreement,
// HKDF-SHA256 key derivation and AES-GCM.
type CipherExchange struct{}

// NewCipherExchange constructs a CipherExchange.
func NewCipherExchange() *CipherExchange { return &CipherExchange{} }

// GenerateSessionKeys generates a fresh P-256 key pair for one login attempt.
// The private key is returned as PKCS#8 PEM for storage, the public key as an
// encryption-use JWK for the client.
func (CipherExchange) GenerateSessionKeys(sid string) ([]byte, auth.ECPublicKeyJWK, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, auth.ECPublicKeyJWK{}, fmt.Errorf("generate key pair: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, auth.ECPublicKeyJWK{}, fmt.Errorf("marshal private key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	jwk := auth.ECPublicKeyJWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(coord(key.PublicKey.X)),
		Y:   base64.RawURLEncoding.EncodeToString(coord(key.PublicKey.Y)),
		Use: "enc",
	}
	return pemBytes, jwk, nil
}

// Decrypt reconstructs the client public key from its JWK, agrees on a shared
// secret, derives the AES key with HKDF (salt = sid, info = protocol tag) and
// opens the envelope with the sid as additional authenticated data. Any
// failure is reported as a cipher-session error; no partial plaintext is ever
// returned.
func (CipherExchange) Decrypt(privateKeyPEM []byte, clientJWK auth.ECPublicKeyJWK, sid, nonce, ciphertext string) (string, error) {
	priv, err := parsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return "", auth.WrapCipherError(err)
	}
	clientPub, err := jwkToPublicKey(clientJWK)
	if err != nil {
		return "", auth.WrapCipherError(err)
	}

	ecdhPriv, err := priv.ECDH()
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("private key agreement form: %w", err))
	}
	ecdhPub, err := clientPub.ECDH()
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("client key agreement form: %w", err))
	}
	shared, err := ecdhPriv.ECDH(ecdhPub)
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("key agreement: %w", err))
	}

	kdf := hkdf.New(sha256.New, shared, []byte(sid), []byte(hkdfInfo))
	key := make([]byte, derivedKeyLen)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("derive key: %w", err))
	}

	nonceBytes, err := decodeB64URL(nonce)
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("decode nonce: %w", err))
	}
	ctBytes, err := decodeB64URL(ciphertext)
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("decode ciphertext: %w", err))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", auth.WrapCipherError(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", auth.WrapCipherError(err)
	}
	if len(nonceBytes) != gcm.NonceSize() {
		return "", auth.WrapCipherError(fmt.Errorf("nonce must be %d bytes", gcm.NonceSize()))
	}

	plaintext, err := gcm.Open(nil, nonceBytes, ctBytes, []byte(sid))
	if err != nil {
		return "", auth.WrapCipherError(fmt.Errorf("open envelope: %w", err))
	}
	return string(plaintext), nil
}

func parsePrivateKeyPEM(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an EC private key")
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("key is not on P-256")
	}
	return key, nil
}

func jwkToPublicKey(jwk auth.ECPublicKeyJWK) (*ecdsa.PublicKey, error) {
	if jwk.Kty != "EC" || jwk.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported JWK type %q/%q", jwk.Kty, jwk.Crv)
	}
	xBytes, err := decodeB64URL(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	yBytes, err := decodeB64URL(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}
	return pub, nil
}

// coord left-pads a P-256 coordinate to its fixed 32-byte width.
func coord(v *big.Int) []byte {
	out := make([]byte, 32)
	return v.FillBytes(out)
}

// decodeB64URL accepts base64url input with or without padding.
func decodeB64URL(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
