package mock

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"keygate/internal/domain/auth"
)

// ConfirmationCode is the code accepted for every pending confirmation.
const ConfirmationCode = "123456"

// Account is one seeded identity. Username doubles as the provider subject.
type Account struct {
	Username   string
	Password   string
	Email      string
	GivenName  string
	FamilyName string
	Confirmed  bool
}

// Gateway is an in-memory identity provider for development and tests. All
// state is instance-local; two gateways never share accounts or tokens.
type Gateway struct {
	mu       sync.Mutex
	accounts map[string]*Account
	// access token -> username
	tokens map[string]string
	// refresh token -> username
	refreshTokens map[string]string
	domain        string
}

// New creates a mock gateway seeded with the given accounts.
func New(seed ...Account) *Gateway {
	g := &Gateway{
		accounts:      make(map[string]*Account),
		tokens:        make(map[string]string),
		refreshTokens: make(map[string]string),
		domain:        "https://mock-idp.local",
	}
	for _, a := range seed {
		acc := a
		g.accounts[a.Username] = &acc
	}
	return g
}

func (g *Gateway) issueTokens(username string) *auth.AuthenticationResult {
	access := "mock-access-" + uuid.NewString()
	refresh := "mock-refresh-" + uuid.NewString()
	g.tokens[access] = username
	g.refreshTokens[refresh] = username
	return &auth.AuthenticationResult{
		AccessToken:  access,
		RefreshToken: refresh,
		IDToken:      "mock-id-" + uuid.NewString(),
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
}

func (g *Gateway) userOf(acc *Account) *auth.User {
	status := "UNCONFIRMED"
	if acc.Confirmed {
		status = "CONFIRMED"
	}
	return &auth.User{
		ID:                acc.Username,
		ProviderSub:       acc.Username,
		Email:             acc.Email,
		EmailVerified:     acc.Confirmed,
		GivenName:         acc.GivenName,
		FamilyName:        acc.FamilyName,
		PreferredUsername: acc.Username,
		Enabled:           true,
		UserStatus:        status,
	}
}

func (g *Gateway) InitiateAuth(_ context.Context, username, password string) (*auth.AuthChallenge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok || acc.Password != password || !acc.Confirmed {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.AuthChallenge{Result: g.issueTokens(username)}, nil
}

func (g *Gateway) SignUp(_ context.Context, in auth.SignUpInput) (*auth.Registration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.accounts[in.Username]; ok {
		return nil, auth.NewValidationError(auth.ReasonUsernameExists, "an account with this username already exists")
	}
	g.accounts[in.Username] = &Account{
		Username:   in.Username,
		Password:   in.Password,
		Email:      in.Email,
		GivenName:  in.GivenName,
		FamilyName: in.FamilyName,
	}
	return &auth.Registration{
		UserSub:      in.Username,
		CodeDelivery: &auth.CodeDelivery{Medium: "EMAIL", Destination: maskEmail(in.Email)},
	}, nil
}

func (g *Gateway) ConfirmSignUp(_ context.Context, username, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok {
		return auth.ErrUserNotFound
	}
	if code != ConfirmationCode {
		return auth.NewValidationError(auth.ReasonCodeMismatch, "invalid confirmation code")
	}
	acc.Confirmed = true
	return nil
}

func (g *Gateway) ResendConfirmationCode(_ context.Context, username string) (*auth.CodeDelivery, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &auth.CodeDelivery{Medium: "EMAIL", Destination: maskEmail(acc.Email)}, nil
}

func (g *Gateway) ForgotPassword(_ context.Context, username string) (*auth.CodeDelivery, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &auth.CodeDelivery{Medium: "EMAIL", Destination: maskEmail(acc.Email)}, nil
}

func (g *Gateway) ConfirmForgotPassword(_ context.Context, username, code, newPassword string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok {
		return auth.ErrUserNotFound
	}
	if code != ConfirmationCode {
		return auth.NewValidationError(auth.ReasonCodeMismatch, "invalid confirmation code")
	}
	acc.Password = newPassword
	return nil
}

func (g *Gateway) RefreshToken(_ context.Context, refreshToken string) (*auth.AuthenticationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	username, ok := g.refreshTokens[refreshToken]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	delete(g.refreshTokens, refreshToken)
	return g.issueTokens(username), nil
}

func (g *Gateway) GetUser(_ context.Context, accessToken string) (*auth.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	username, ok := g.tokens[accessToken]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return g.userOf(g.accounts[username]), nil
}

func (g *Gateway) AdminGetUser(_ context.Context, username string) (*auth.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return g.userOf(acc), nil
}

func (g *Gateway) GlobalSignOut(_ context.Context, accessToken string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	username, ok := g.tokens[accessToken]
	if !ok {
		return auth.ErrInvalidToken
	}
	for token, owner := range g.tokens {
		if owner == username {
			delete(g.tokens, token)
		}
	}
	for token, owner := range g.refreshTokens {
		if owner == username {
			delete(g.refreshTokens, token)
		}
	}
	return nil
}

func (g *Gateway) HostedUIURL(redirectURI, state, identityProvider string) (string, error) {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", "mock-client")
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if identityProvider != "" {
		q.Set("identity_provider", identityProvider)
	}
	return g.domain + "/oauth2/authorize?" + q.Encode(), nil
}

// ExchangeCodeForTokens accepts any code of the form "code-<username>" for a
// confirmed account.
func (g *Gateway) ExchangeCodeForTokens(_ context.Context, code, _ string) (*auth.TokenSet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	username, ok := strings.CutPrefix(code, "code-")
	if !ok {
		return nil, auth.ErrOAuthInvalidCode
	}
	acc, exists := g.accounts[username]
	if !exists || !acc.Confirmed {
		return nil, auth.ErrOAuthInvalidCode
	}
	result := g.issueTokens(username)
	return &auth.TokenSet{
		AccessToken:  result.AccessToken,
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
	}, nil
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	return fmt.Sprintf("%c***@%s", local[0], domain)
}
