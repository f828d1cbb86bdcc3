package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

// AuthorizeURL builds the hosted-UI authorization redirect. The CSRF state is
// generated server-side and stored for one-shot consumption by the callback.
func (s *Service) AuthorizeURL(ctx context.Context, redirectURI, identityProvider string) (*AuthorizeResponse, error) {
	if redirectURI == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "redirect_uri is required")
	}

	state := uuid.NewString()
	if err := s.states.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("store oauth state: %w", err)
	}

	url, err := s.gateway.HostedUIURL(redirectURI, state, identityProvider)
	if err != nil {
		return nil, s.mapProviderErr(err)
	}
	return &AuthorizeResponse{URL: url, State: state}, nil
}

// OAuthCallback completes an authorization-code flow: the state is consumed,
// the code exchanged, the user resolved, and a local session established. The
// provider token set is passed through so the client can reach provider APIs
// directly.
func (s *Service) OAuthCallback(ctx context.Context, code, redirectURI, state string, meta auth.SessionMetadata) (*OAuthCallbackResponse, error) {
	if code == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "authorization code is required")
	}
	if redirectURI == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "redirect_uri is required")
	}

	if state != "" {
		ok, err := s.states.Consume(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("consume oauth state: %w", err)
		}
		if !ok {
			return nil, auth.ErrOAuthStateInvalid
		}
	}

	tokens, err := s.gateway.ExchangeCodeForTokens(ctx, code, redirectURI)
	if err != nil {
		return nil, s.mapOAuthErr(err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, auth.ErrOAuthTokenResponse
	}

	user, err := s.gateway.GetUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, s.mapProviderErr(err)
	}

	sid := uuid.NewString()
	session := auth.NewSession(sid, user, tokens.RefreshToken, s.cfg.Auth.SessionTTL, meta)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := s.signer.Mint(s.userClaims(user.ID, user.ProviderSub, session.SID, session.Version))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("sid", sid).Msg("oauth login successful")
	return &OAuthCallbackResponse{
		SID:         sid,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:        userInfoOf(user),
		ProviderTokens: ProviderTokenInfo{
			AccessToken:  tokens.AccessToken,
			IDToken:      tokens.IDToken,
			RefreshToken: tokens.RefreshToken,
		},
	}, nil
}

// mapOAuthErr narrows code-exchange failures. A rejected code reads as an
// invalid token to the client; client-auth misconfiguration and provider
// outages keep their own kinds.
func (s *Service) mapOAuthErr(err error) error {
	switch {
	case errors.Is(err, auth.ErrOAuthInvalidCode):
		return fmt.Errorf("%w: %w", auth.ErrInvalidToken, err)
	case errors.Is(err, auth.ErrOAuthClientAuth),
		errors.Is(err, auth.ErrOAuthTokenExchange),
		errors.Is(err, auth.ErrOAuthTokenResponse),
		errors.Is(err, auth.ErrProviderUnavailable):
		return err
	}
	return fmt.Errorf("%w: %v", auth.ErrOAuthTokenExchange, err)
}
