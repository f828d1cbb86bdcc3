package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/domain/auth"
)

// JWKS returns the published verification key set.
func (s *Service) JWKS() auth.JWKS {
	return s.signer.JWKS()
}

// Principal is the verified identity extracted from a bearer token.
type Principal struct {
	Subject     string
	SID         string
	SIDV        int
	ProviderSub string
	Scope       string
	Roles       []string
	TokenUse    string
}

// ValidateAccessToken verifies a user access token and checks that its session
// is still alive. A token whose session was invalidated is rejected even
// before its own expiry.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, s.signer.Keyfunc,
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithIssuer(s.cfg.Auth.JWTIssuer),
		jwt.WithAudience(s.cfg.Auth.JWTAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, auth.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	if use, _ := claims["token_use"].(string); use != auth.TokenUseAccess {
		return nil, auth.ErrInvalidToken
	}

	p := principalOf(claims)
	if p.SID == "" {
		return nil, auth.ErrInvalidToken
	}

	session, err := s.sessions.Get(ctx, p.SID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, auth.ErrInvalidSession
	}
	if !session.IsValid() {
		return nil, auth.ErrSessionExpired
	}
	return p, nil
}

func principalOf(claims jwt.MapClaims) *Principal {
	p := &Principal{}
	p.Subject, _ = claims["sub"].(string)
	p.SID, _ = claims["sid"].(string)
	p.ProviderSub, _ = claims["provider_sub"].(string)
	p.Scope, _ = claims["scope"].(string)
	p.TokenUse, _ = claims["token_use"].(string)
	if v, ok := claims["sidv"].(float64); ok {
		p.SIDV = int(v)
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				p.Roles = append(p.Roles, role)
			}
		}
	}
	return p
}
