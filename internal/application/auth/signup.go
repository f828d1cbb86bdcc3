package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

// SignUp registers a new account with the identity provider.
func (s *Service) SignUp(ctx context.Context, in auth.SignUpInput) (*SignUpResponse, error) {
	if in.Username == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "a valid email is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	reg, err := s.gateway.SignUp(ctx, in)
	if err != nil {
		if ve, ok := auth.AsValidationError(err); ok {
			return nil, ve
		}
		return nil, s.mapProviderErr(err)
	}

	resp := &SignUpResponse{
		UserSub:       reg.UserSub,
		UserConfirmed: reg.UserConfirmed,
		Message:       "Account created. Check your email for a confirmation code",
	}
	if reg.UserConfirmed {
		resp.Message = "Account created"
	}
	if reg.CodeDelivery != nil {
		resp.DeliveryMedium = reg.CodeDelivery.Medium
		resp.Destination = reg.CodeDelivery.Destination
	}

	log.Info().Str("username", in.Username).Bool("confirmed", reg.UserConfirmed).Msg("signup accepted")
	return resp, nil
}

// ConfirmSignUp verifies the emailed confirmation code for a new account.
func (s *Service) ConfirmSignUp(ctx context.Context, username, code string) error {
	if username == "" {
		return auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}
	if code == "" {
		return auth.NewValidationError(auth.ReasonMissingField, "confirmation code is required")
	}

	if err := s.gateway.ConfirmSignUp(ctx, username, code); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return auth.NewValidationError(auth.ReasonUserNotFound, "user not found")
		}
		if ve, ok := auth.AsValidationError(err); ok {
			return ve
		}
		return s.mapProviderErr(err)
	}

	log.Info().Str("username", username).Msg("signup confirmed")
	return nil
}

// ResendConfirmationCode requests a fresh confirmation code. Unknown usernames
// get the same acknowledgement as known ones.
func (s *Service) ResendConfirmationCode(ctx context.Context, username string) (*ForgotPasswordResponse, error) {
	if username == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}

	if _, err := s.gateway.ResendConfirmationCode(ctx, username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			log.Info().Str("username", username).Msg("confirmation code requested for unknown user")
			return &ForgotPasswordResponse{Message: resendCodeMessage, DeliveryMedium: "EMAIL"}, nil
		}
		if ve, ok := auth.AsValidationError(err); ok {
			return nil, ve
		}
		return nil, s.mapProviderErr(err)
	}

	// Delivery details from the provider are dropped, see ForgotPassword.
	return &ForgotPasswordResponse{Message: resendCodeMessage, DeliveryMedium: "EMAIL"}, nil
}

const resendCodeMessage = "If an account exists for this username, a new confirmation code has been sent"
