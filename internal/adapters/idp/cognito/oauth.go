package cognito

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

const hostedUIScopes = "openid email profile"

// HostedUIURL builds the hosted-UI authorization redirect for the
// authorization-code flow.
func (g *Gateway) HostedUIURL(redirectURI, state, identityProvider string) (string, error) {
	if g.cfg.Domain == "" || g.cfg.ClientID == "" {
		return "", fmt.Errorf("%w: hosted UI is not configured", auth.ErrProviderUnavailable)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", hostedUIScopes)
	q.Set("state", state)
	if identityProvider != "" {
		q.Set("identity_provider", identityProvider)
	}
	return strings.TrimSuffix(g.cfg.Domain, "/") + "/oauth2/authorize?" + q.Encode(), nil
}

// oauthErrorBody is the RFC 6749 error shape returned by the token endpoint.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCodeForTokens redeems an authorization code at the hosted-UI token
// endpoint.
func (g *Gateway) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*auth.TokenSet, error) {
	if g.cfg.Domain == "" {
		return nil, fmt.Errorf("%w: hosted UI is not configured", auth.ErrProviderUnavailable)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", g.cfg.ClientID)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	endpoint := strings.TrimSuffix(g.cfg.Domain, "/") + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if g.cfg.ClientSecret != "" {
		req.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token endpoint: %v", auth.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read token response: %v", auth.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, g.mapOAuthError(resp.StatusCode, data)
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrOAuthTokenResponse, err)
	}
	if tokens.AccessToken == "" {
		return nil, auth.ErrOAuthTokenResponse
	}
	return &auth.TokenSet{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

func (g *Gateway) mapOAuthError(status int, data []byte) error {
	var body oauthErrorBody
	_ = json.Unmarshal(data, &body)
	log.Debug().Str("oauth_error", body.Error).Int("status", status).Msg("token exchange rejected")

	switch body.Error {
	case "invalid_grant":
		return auth.ErrOAuthInvalidCode
	case "invalid_client", "unauthorized_client":
		return auth.ErrOAuthClientAuth
	default:
		return fmt.Errorf("%w: %s (%d)", auth.ErrOAuthTokenExchange, body.Error, status)
	}
}
