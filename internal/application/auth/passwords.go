package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

// forgotPasswordMessage is returned for every forgot-password request so the
// response cannot be used to probe which usernames exist.
const forgotPasswordMessage = "If an account exists for this username, a password reset code has been sent"

// ForgotPassword starts a password reset. Unknown usernames produce the same
// response as known ones; only rate limiting and provider outages surface.
func (s *Service) ForgotPassword(ctx context.Context, username string) (*ForgotPasswordResponse, error) {
	if username == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}

	if _, err := s.gateway.ForgotPassword(ctx, username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			log.Info().Str("username", username).Msg("password reset requested for unknown user")
			return &ForgotPasswordResponse{Message: forgotPasswordMessage, DeliveryMedium: "EMAIL"}, nil
		}
		if ve, ok := auth.AsValidationError(err); ok && ve.Reason == auth.ReasonRateLimited {
			return nil, ve
		}
		return nil, s.mapProviderErr(err)
	}

	// The provider's delivery details are dropped on purpose: they are
	// populated only for real accounts.
	return &ForgotPasswordResponse{Message: forgotPasswordMessage, DeliveryMedium: "EMAIL"}, nil
}

// ConfirmForgotPassword completes a password reset with the emailed code. On
// success every live session for the user is invalidated; invalidation
// failures never fail the reset itself.
func (s *Service) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) (*ConfirmForgotPasswordResponse, error) {
	if username == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}
	if code == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "confirmation code is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	if err := s.gateway.ConfirmForgotPassword(ctx, username, code, newPassword); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, auth.NewValidationError(auth.ReasonUserNotFound, "user not found")
		}
		if ve, ok := auth.AsValidationError(err); ok {
			return nil, ve
		}
		return nil, s.mapProviderErr(err)
	}

	s.invalidateUserSessions(ctx, username)

	log.Info().Str("username", username).Msg("password reset completed")
	return &ConfirmForgotPasswordResponse{
		Success: true,
		Message: "Password has been reset successfully",
	}, nil
}

// invalidateUserSessions is the best-effort post-reset cleanup: a stolen
// session should not outlive the password it was opened with.
func (s *Service) invalidateUserSessions(ctx context.Context, username string) {
	sessions, err := s.sessions.GetByUsername(ctx, username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("session lookup after password reset failed")
		return
	}
	for _, session := range sessions {
		if !s.invalidateSession(ctx, session, "password_reset") {
			log.Warn().Str("sid", session.SID).Msg("session invalidation after password reset failed")
		}
	}
	if len(sessions) > 0 {
		log.Info().Int("count", len(sessions)).Str("username", username).Msg("sessions invalidated after password reset")
	}
}

const (
	minPasswordLen = 8
	maxPasswordLen = 128
)

func validatePassword(password string) error {
	if password == "" {
		return auth.NewValidationError(auth.ReasonMissingField, "password is required")
	}
	if len(password) < minPasswordLen {
		return auth.NewValidationError(auth.ReasonInvalidPassword, "password must be at least 8 characters")
	}
	if len(password) > maxPasswordLen {
		return auth.NewValidationError(auth.ReasonInvalidPassword, "password must be at most 128 characters")
	}
	return nil
}
