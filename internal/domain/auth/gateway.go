package auth

import "context"

// IdentityProviderGateway wraps the upstream identity provider. Adapters parse
// provider payloads into the value objects in this package and map provider
// failures onto the error taxonomy; callers never see raw provider errors.
type IdentityProviderGateway interface {
	InitiateAuth(ctx context.Context, username, password string) (*AuthChallenge, error)
	SignUp(ctx context.Context, in SignUpInput) (*Registration, error)
	ConfirmSignUp(ctx context.Context, username, code string) error
	ResendConfirmationCode(ctx context.Context, username string) (*CodeDelivery, error)
	ForgotPassword(ctx context.Context, username string) (*CodeDelivery, error)
	ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error
	RefreshToken(ctx context.Context, refreshToken string) (*AuthenticationResult, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	AdminGetUser(ctx context.Context, username string) (*User, error)
	GlobalSignOut(ctx context.Context, accessToken string) error
	HostedUIURL(redirectURI, state, identityProvider string) (string, error)
	ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*TokenSet, error)
}
