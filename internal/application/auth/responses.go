package auth

import "keygate/internal/domain/auth"

// UserInfo is the user projection returned to clients.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

func userInfoOf(u *auth.User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		GivenName:     u.GivenName,
		FamilyName:    u.FamilyName,
		EmailVerified: u.EmailVerified,
	}
}

// CipherSessionResponse is returned when a cipher session is created.
type CipherSessionResponse struct {
	SID                string              `json:"sid"`
	ServerPublicKeyJWK auth.ECPublicKeyJWK `json:"server_public_key_jwk"`
}

// LoginResponse is the result of a successful login or OAuth callback.
type LoginResponse struct {
	SID         string   `json:"sid"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// TokenResponse is the result of a token refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LogoutResponse reports how many sessions a logout terminated.
type LogoutResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	SessionsTerminated int    `json:"sessions_terminated"`
}

// ForgotPasswordResponse acknowledges a password-reset or resend-code request.
// The whole response is identical whether or not the account exists; carrying
// the provider's masked destination would single out real accounts.
type ForgotPasswordResponse struct {
	Message        string `json:"message"`
	DeliveryMedium string `json:"delivery_medium,omitempty"`
}

// ConfirmForgotPasswordResponse acknowledges a completed password reset.
type ConfirmForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProviderTokenInfo passes the raw provider token set through an OAuth callback.
type ProviderTokenInfo struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// OAuthCallbackResponse is the result of a completed OAuth code exchange.
type OAuthCallbackResponse struct {
	SID            string            `json:"sid"`
	AccessToken    string            `json:"access_token"`
	TokenType      string            `json:"token_type"`
	ExpiresIn      int               `json:"expires_in"`
	User           UserInfo          `json:"user"`
	ProviderTokens ProviderTokenInfo `json:"provider_tokens"`
}

// AuthorizeResponse carries the hosted-UI redirect for starting an OAuth flow.
type AuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// SignUpResponse is the result of a registration request.
type SignUpResponse struct {
	UserSub        string `json:"user_sub"`
	UserConfirmed  bool   `json:"user_confirmed"`
	Message        string `json:"message"`
	DeliveryMedium string `json:"delivery_medium,omitempty"`
	Destination    string `json:"destination,omitempty"`
}
