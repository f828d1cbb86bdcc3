package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/domain/auth"
)

// TokenSigner mints compact JWS tokens and publishes the verification keys.
// Keyfunc resolves the verification key for tokens this signer minted.
type TokenSigner interface {
	Mint(claims auth.JWTClaims) (string, error)
	JWKS() auth.JWKS
	Keyfunc(token *jwt.Token) (any, error)
}

// CipherService performs the ECDH key generation and envelope decryption for
// encrypted-password logins.
type CipherService interface {
	GenerateSessionKeys(sid string) (privateKeyPEM []byte, publicKeyJWK auth.ECPublicKeyJWK, err error)
	Decrypt(privateKeyPEM []byte, clientJWK auth.ECPublicKeyJWK, sid, nonce, ciphertext string) (string, error)
}
