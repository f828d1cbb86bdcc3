package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"keygate/internal/domain/auth"
)

func TestAuthorizeURL(t *testing.T) {
	env := newTestEnv(t, demoAccount())

	resp, err := env.service.AuthorizeURL(context.Background(), "https://app.local/cb", "Google")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}
	if resp.State == "" {
		t.Fatalf("no state issued")
	}

	u, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != resp.State {
		t.Errorf("state not embedded in URL")
	}
	if q.Get("redirect_uri") != "https://app.local/cb" || q.Get("response_type") != "code" {
		t.Errorf("query = %v", q)
	}
	if q.Get("identity_provider") != "Google" {
		t.Errorf("identity_provider = %q", q.Get("identity_provider"))
	}
}

func TestAuthorizeURLRequiresRedirectURI(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.AuthorizeURL(context.Background(), "", "")
	if ve, ok := auth.AsValidationError(err); !ok || ve.Reason != auth.ReasonMissingField {
		t.Errorf("missing redirect_uri: err = %v", err)
	}
}

func TestOAuthCallback(t *testing.T) {
	env := newTestEnv(t, demoAccount())
	ctx := context.Background()

	authz, err := env.service.AuthorizeURL(ctx, "https://app.local/cb", "")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}

	resp, err := env.service.OAuthCallback(ctx, "code-demo", "https://app.local/cb", authz.State, auth.SessionMetadata{})
	if err != nil {
		t.Fatalf("OAuthCallback: %v", err)
	}
	if resp.SID == "" || resp.User.ID != "demo" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ProviderTokens.AccessToken == "" || resp.ProviderTokens.RefreshToken == "" {
		t.Errorf("provider tokens not passed through: %+v", resp.ProviderTokens)
	}
	if parts := strings.Split(resp.AccessToken, "."); len(parts) != 3 {
		t.Errorf("local access token is not a JWS")
	}

	if session, _ := env.sessions.Get(ctx, resp.SID); session == nil {
		t.Errorf("session not established")
	}

	// The state is one-shot; the same callback cannot run twice.
	if _, err := env.service.OAuthCallback(ctx, "code-demo", "https://app.local/cb", authz.State, auth.SessionMetadata{}); !errors.Is(err, auth.ErrOAuthStateInvalid) {
		t.Errorf("replayed state: err = %v", err)
	}
}

func TestOAuthCallbackUnknownState(t *testing.T) {
	env := newTestEnv(t, demoAccount())

	_, err := env.service.OAuthCallback(context.Background(), "code-demo", "https://app.local/cb", "forged-state", auth.SessionMetadata{})
	if !errors.Is(err, auth.ErrOAuthStateInvalid) {
		t.Errorf("forged state: err = %v", err)
	}
}

func TestOAuthCallbackBadCode(t *testing.T) {
	env := newTestEnv(t, demoAccount())

	_, err := env.service.OAuthCallback(context.Background(), "garbage", "https://app.local/cb", "", auth.SessionMetadata{})
	if !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("rejected code should read as an invalid token: err = %v", err)
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.OAuthCallback(context.Background(), "", "https://app.local/cb", "", auth.SessionMetadata{})
	if ve, ok := auth.AsValidationError(err); !ok || ve.Reason != auth.ReasonMissingField {
		t.Errorf("missing code: err = %v", err)
	}
}

func TestMintServiceToken(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.service.MintServiceToken(context.Background(), ServiceTokenInput{
		ClientID:     "bff-client",
		ClientSecret: "bff-secret",
		SubSPN:       "spn:bff",
		ActorSub:     "user-1",
		ActorScope:   "user.read",
	})
	if err != nil {
		t.Fatalf("MintServiceToken: %v", err)
	}

	if token.TokenType != "Bearer" || token.ExpiresIn != 300 {
		t.Errorf("token = %+v", token)
	}
	if token.Scope != "svc.userprofiles.read svc.usersettings.read svc.usersettings.write" {
		t.Errorf("default scope = %q", token.Scope)
	}

	parsed, err := jwt.Parse(token.AccessToken, env.signer.Keyfunc, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil || !parsed.Valid {
		t.Fatalf("parse service token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "spn:bff" || claims["token_use"] != "svc" {
		t.Errorf("claims = %v", claims)
	}
	aud, _ := claims.GetAudience()
	if len(aud) != 1 || aud[0] != "internal" {
		t.Errorf("aud = %v, want [internal]", aud)
	}
	if claims["exp"].(float64)-claims["iat"].(float64) != 300 {
		t.Errorf("lifetime = %v", claims["exp"].(float64)-claims["iat"].(float64))
	}
	act, ok := claims["act"].(map[string]any)
	if !ok || act["sub"] != "user-1" {
		t.Errorf("act = %v", claims["act"])
	}
}

func TestMintServiceTokenRequestedScope(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.service.MintServiceToken(context.Background(), ServiceTokenInput{
		ClientID:     "bff-client",
		ClientSecret: "bff-secret",
		SubSPN:       "spn:bff",
		Scope:        "svc.usersettings.read",
	})
	if err != nil {
		t.Fatalf("MintServiceToken: %v", err)
	}
	if token.Scope != "svc.usersettings.read" {
		t.Errorf("scope = %q", token.Scope)
	}
}

func TestMintServiceTokenRejectsBadClients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []ServiceTokenInput{
		{ClientID: "bff-client", ClientSecret: "wrong", SubSPN: "spn:bff"},
		{ClientID: "wrong", ClientSecret: "bff-secret", SubSPN: "spn:bff"},
		{ClientID: "bff-client", ClientSecret: "bff-secret", SubSPN: "spn:unregistered"},
		{SubSPN: "spn:bff"},
	}
	for i, in := range cases {
		if _, err := env.service.MintServiceToken(ctx, in); !errors.Is(err, auth.ErrUnauthorizedClient) {
			t.Errorf("case %d: err = %v, want unauthorized client", i, err)
		}
	}
}
