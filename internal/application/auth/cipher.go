package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

// CreateCipherSession generates an ephemeral P-256 key pair for one login
// attempt and returns the public half as a JWK. The private key never leaves
// the server.
func (s *Service) CreateCipherSession(ctx context.Context) (*CipherSessionResponse, error) {
	sid := uuid.NewString()

	privateKeyPEM, publicJWK, err := s.cipher.GenerateSessionKeys(sid)
	if err != nil {
		return nil, auth.WrapCipherError(err)
	}

	session := auth.NewCipherSession(sid, privateKeyPEM, publicJWK, s.cfg.Auth.CipherSessionTTL)
	if err := s.ciphers.Save(ctx, session); err != nil {
		return nil, auth.WrapCipherError(err)
	}

	log.Debug().Str("cipher_sid", sid).Msg("cipher session created")
	return &CipherSessionResponse{SID: sid, ServerPublicKeyJWK: publicJWK}, nil
}

// decryptPassword consumes the cipher session named by the envelope and
// recovers the plaintext password. The session is taken from the store before
// any decryption happens, so a second attempt with the same envelope always
// fails regardless of the first attempt's outcome.
func (s *Service) decryptPassword(ctx context.Context, env *auth.CipherEnvelope) (string, error) {
	session, err := s.ciphers.Take(ctx, env.SID)
	if err != nil {
		return "", auth.WrapCipherError(err)
	}
	if !session.IsValid() {
		return "", auth.ErrCipherSession
	}
	return s.cipher.Decrypt(session.ServerPrivateKeyPEM, env.ClientPublicKeyJWK, env.SID, env.Nonce, env.PasswordEnc)
}
