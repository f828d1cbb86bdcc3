package auth

import "strings"

// Provider-agnostic value objects returned by the identity provider gateway.
// Raw provider payloads are parsed into these at the adapter boundary; nothing
// above the gateway inspects provider wire formats.

// AuthenticationResult carries the token material issued by the provider.
type AuthenticationResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthChallenge is the outcome of an authentication attempt: either a
// completed result or a follow-up challenge the client must answer.
type AuthChallenge struct {
	ChallengeName string                `json:"challenge_name,omitempty"`
	Session       string                `json:"session,omitempty"`
	Result        *AuthenticationResult `json:"result,omitempty"`
}

// TokenSet is the full token response from an OAuth authorization-code exchange.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// CodeDelivery describes where a verification code was sent.
type CodeDelivery struct {
	Medium      string `json:"delivery_medium"`
	Destination string `json:"destination"`
}

// IsEmail reports whether the code was delivered by email.
func (c *CodeDelivery) IsEmail() bool {
	return c != nil && strings.EqualFold(c.Medium, "EMAIL")
}

// Registration is the result of a sign-up request.
type Registration struct {
	UserSub       string        `json:"user_sub"`
	UserConfirmed bool          `json:"user_confirmed"`
	CodeDelivery  *CodeDelivery `json:"code_delivery,omitempty"`
}

// SignUpInput bundles the attributes for a new account.
type SignUpInput struct {
	Username   string
	Password   string
	Email      string
	GivenName  string
	FamilyName string
}
