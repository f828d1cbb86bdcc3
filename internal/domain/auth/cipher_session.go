package auth

import "time"

// DefaultCipherSessionTTL bounds how long a password-encryption key pair may
// sit unused before the client has to start over.
const DefaultCipherSessionTTL = 5 * time.Minute

// CipherSession holds the server half of an ECDH key agreement for one login
// attempt. It is single-use: the store must hand it out at most once.
type CipherSession struct {
	SID                 string         `json:"sid"`
	ServerPrivateKeyPEM []byte         `json:"server_private_key_pem"`
	ServerPublicKeyJWK  ECPublicKeyJWK `json:"server_public_key_jwk"`
	CreatedAt           time.Time      `json:"created_at"`
	ExpiresAt           time.Time      `json:"expires_at"`
}

// NewCipherSession creates a cipher session around a freshly generated key pair.
func NewCipherSession(sid string, privateKeyPEM []byte, publicKeyJWK ECPublicKeyJWK, ttl time.Duration) *CipherSession {
	now := time.Now().UTC()
	return &CipherSession{
		SID:                 sid,
		ServerPrivateKeyPEM: privateKeyPEM,
		ServerPublicKeyJWK:  publicKeyJWK,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}
}

// IsExpired checks if the cipher session has passed its expiry time
func (c *CipherSession) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsValid checks if the cipher session is usable
func (c *CipherSession) IsValid() bool {
	return c != nil && !c.IsExpired()
}

// CipherEnvelope is the client-to-server wire shape carrying an encrypted
// password together with the client's ephemeral public key.
type CipherEnvelope struct {
	ClientPublicKeyJWK ECPublicKeyJWK `json:"client_public_key_jwk" binding:"required"`
	Nonce              string         `json:"nonce" binding:"required"`
	PasswordEnc        string         `json:"password_enc" binding:"required"`
	SID                string         `json:"sid" binding:"required"`
}
