package auth

import (
	"errors"
	"fmt"
)

// Credential and session errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("session not found")
	ErrSessionExpired     = errors.New("session has expired")
	ErrCipherSession      = errors.New("invalid or expired cipher session")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrUserNotFound       = errors.New("user not found")
)

// OAuth errors
var (
	ErrOAuthInvalidCode    = errors.New("authorization code is invalid or expired")
	ErrOAuthClientAuth     = errors.New("oauth client authentication failed")
	ErrOAuthTokenExchange  = errors.New("oauth token exchange failed")
	ErrOAuthTokenResponse  = errors.New("oauth token response is malformed")
	ErrOAuthStateInvalid   = errors.New("oauth state is missing or already used")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Service token errors
var (
	ErrUnauthorizedClient = errors.New("invalid client credentials")
	ErrServiceToken       = errors.New("service token issuance failed")
)

// Validation reasons carried by ValidationError.
const (
	ReasonMissingField    = "missing_field"
	ReasonCodeMismatch    = "code_mismatch"
	ReasonExpiredCode     = "expired_code"
	ReasonInvalidPassword = "invalid_password"
	ReasonUsernameExists  = "username_exists"
	ReasonUserNotFound    = "user_not_found"
	ReasonRateLimited     = "rate_limited"
)

// ValidationError is a user-facing input or flow validation failure. Reason is
// a stable discriminator for transport mapping; Message is safe to show.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError constructs a ValidationError.
func NewValidationError(reason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// WrapCipherError tags err as a cipher-session failure while keeping the cause.
func WrapCipherError(err error) error {
	return fmt.Errorf("%w: %w", ErrCipherSession, err)
}
