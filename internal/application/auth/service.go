package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"keygate/internal/config"
	"keygate/internal/domain/auth"
)

// Service orchestrates the authentication protocol flows over the stores, the
// identity-provider gateway, the token signer and the cipher exchange. Every
// failure path surfaces exactly one error from the domain taxonomy; raw
// upstream errors never escape.
type Service struct {
	cfg      *config.Config
	sessions auth.SessionStore
	ciphers  auth.CipherSessionStore
	states   auth.StateStore
	gateway  auth.IdentityProviderGateway
	signer   TokenSigner
	cipher   CipherService
	archive  auth.SessionArchive // optional
}

// NewService creates a new authentication service.
func NewService(
	cfg *config.Config,
	sessions auth.SessionStore,
	ciphers auth.CipherSessionStore,
	states auth.StateStore,
	gateway auth.IdentityProviderGateway,
	signer TokenSigner,
	cipher CipherService,
) *Service {
	return &Service{
		cfg:      cfg,
		sessions: sessions,
		ciphers:  ciphers,
		states:   states,
		gateway:  gateway,
		signer:   signer,
		cipher:   cipher,
	}
}

// WithArchive attaches a session audit archive. Archive writes are best-effort.
func (s *Service) WithArchive(archive auth.SessionArchive) *Service {
	s.archive = archive
	return s
}

// SessionTTL exposes the configured session lifetime, used by the transport
// layer to scope the session cookie.
func (s *Service) SessionTTL() time.Duration {
	return s.cfg.Auth.SessionTTL
}

// LoginInput carries the credentials for a password login. Either Password or
// Envelope is set; the envelope wins when both are present.
type LoginInput struct {
	Username string
	Password string
	Envelope *auth.CipherEnvelope
	Meta     auth.SessionMetadata
}

// Login authenticates a user against the identity provider and establishes a
// server-side session plus a locally signed access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResponse, error) {
	if in.Username == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "username is required")
	}

	password := in.Password
	if in.Envelope != nil {
		decrypted, err := s.decryptPassword(ctx, in.Envelope)
		if err != nil {
			return nil, err
		}
		password = decrypted
	}
	if password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	challenge, err := s.gateway.InitiateAuth(ctx, in.Username, password)
	if err != nil || challenge == nil || challenge.Result == nil || challenge.Result.AccessToken == "" {
		// Upstream rejection detail is never surfaced to the caller.
		log.Warn().Err(err).Str("username", in.Username).Msg("authentication rejected")
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.gateway.GetUser(ctx, challenge.Result.AccessToken)
	if err != nil {
		return nil, s.mapProviderErr(err)
	}

	sid := uuid.NewString()
	session := auth.NewSession(sid, user, challenge.Result.RefreshToken, s.cfg.Auth.SessionTTL, in.Meta)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := s.signer.Mint(s.userClaims(user.ID, user.ProviderSub, session.SID, session.Version))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("sid", sid).Msg("login successful")
	return &LoginResponse{
		SID:         sid,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:        userInfoOf(user),
	}, nil
}

// RefreshSession issues a fresh access token for a live session. When the
// session is close to expiry the upstream refresh token is exercised first;
// that step is best-effort and never fails the refresh.
func (s *Service) RefreshSession(ctx context.Context, sid string) (*TokenResponse, error) {
	session, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, auth.ErrInvalidSession
	}
	if !session.IsValid() {
		return nil, auth.ErrSessionExpired
	}

	if session.ShouldRefresh(s.cfg.Auth.RefreshThreshold) {
		s.refreshUpstream(ctx, session)
	}

	// Mint from the post-touch version so the token's sidv matches what
	// the store will hold once this refresh lands.
	touched := session.Touched()
	token, err := s.signer.Mint(s.userClaims(touched.UserID, touched.ProviderSub, touched.SID, touched.Version))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	if err := s.sessions.Update(ctx, touched); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.Auth.AccessTokenTTL.Seconds()),
	}, nil
}

// refreshUpstream rotates the stored provider refresh token and extends the
// session. Failures are logged and swallowed; the existing session stays usable.
func (s *Service) refreshUpstream(ctx context.Context, session *auth.Session) {
	if session.RefreshToken == "" {
		return
	}
	result, err := s.gateway.RefreshToken(ctx, session.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("sid", session.SID).Msg("provider refresh failed, keeping existing session")
		return
	}
	if result == nil || result.RefreshToken == "" {
		return
	}
	session.RefreshToken = result.RefreshToken
	session.ExpiresAt = time.Now().UTC().Add(s.cfg.Auth.SessionTTL)
	session.Version++
	if err := s.sessions.Update(ctx, session); err != nil {
		log.Warn().Err(err).Str("sid", session.SID).Msg("session update after provider refresh failed")
	}
}

// RefreshWithToken exchanges a provider refresh token for a new access token.
// Any session storing the old refresh token is updated opportunistically;
// lookup or update failures never fail the refresh.
func (s *Service) RefreshWithToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "refresh token is required")
	}

	result, err := s.gateway.RefreshToken(ctx, refreshToken)
	if err != nil || result == nil || result.AccessToken == "" {
		log.Warn().Err(err).Msg("provider refresh-token grant rejected")
		return nil, auth.ErrInvalidToken
	}

	newRefresh := result.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	if user, err := s.gateway.GetUser(ctx, result.AccessToken); err != nil {
		log.Warn().Err(err).Msg("user lookup after refresh failed, skipping session update")
	} else if user.ProviderSub != "" {
		s.adoptRefreshedToken(ctx, user.ProviderSub, refreshToken, newRefresh)
	}

	expiresIn := result.ExpiresIn
	if expiresIn == 0 {
		expiresIn = int(s.cfg.Auth.AccessTokenTTL.Seconds())
	}
	return &TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

func (s *Service) adoptRefreshedToken(ctx context.Context, providerSub, oldToken, newToken string) {
	sessions, err := s.sessions.GetByProviderSub(ctx, providerSub)
	if err != nil {
		log.Warn().Err(err).Str("provider_sub", providerSub).Msg("session lookup for refresh adoption failed")
		return
	}
	for _, session := range sessions {
		if session.RefreshToken != oldToken {
			continue
		}
		session.RefreshToken = newToken
		if err := s.sessions.Update(ctx, session.Touched()); err != nil {
			log.Warn().Err(err).Str("sid", session.SID).Msg("session update for refresh adoption failed")
		}
		return
	}
}

// LogoutInput identifies the session(s) to terminate. SID takes precedence;
// an access token alone resolves the user through the gateway first.
type LogoutInput struct {
	SID         string
	AccessToken string
	Global      bool
}

// Logout invalidates the addressed session and, for a global logout, every
// session sharing the same provider subject. Individual invalidation failures
// are logged and skipped; the reported count is the number of matching
// sessions. The provider global sign-out is best-effort.
func (s *Service) Logout(ctx context.Context, in LogoutInput) (*LogoutResponse, error) {
	terminated := 0

	switch {
	case in.SID != "":
		session, err := s.sessions.Get(ctx, in.SID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if session == nil {
			log.Warn().Str("sid", in.SID).Msg("session not found for logout")
			break
		}
		if in.Global && session.ProviderSub != "" {
			terminated = s.invalidateAllForProviderSub(ctx, session.ProviderSub, "global_logout")
			if in.AccessToken != "" {
				if err := s.gateway.GlobalSignOut(ctx, in.AccessToken); err != nil {
					log.Warn().Err(err).Msg("provider global sign-out failed")
				}
			}
		} else if s.invalidateSession(ctx, session, "logout") {
			terminated = 1
		}

	case in.AccessToken != "":
		user, err := s.gateway.GetUser(ctx, in.AccessToken)
		if err != nil {
			return nil, auth.ErrInvalidToken
		}
		if user.ProviderSub != "" {
			terminated = s.invalidateAllForProviderSub(ctx, user.ProviderSub, "global_logout")
		}
		if err := s.gateway.GlobalSignOut(ctx, in.AccessToken); err != nil {
			log.Warn().Err(err).Msg("provider global sign-out failed")
		}

	default:
		return nil, auth.NewValidationError(auth.ReasonMissingField, "session id or access token is required")
	}

	log.Info().Int("sessions_terminated", terminated).Bool("global", in.Global).Msg("logout completed")
	return &LogoutResponse{
		Success:            true,
		Message:            "Logged out successfully",
		SessionsTerminated: terminated,
	}, nil
}

// invalidateAllForProviderSub terminates every session for one provider
// subject, returning the number of matching sessions. Failures never abort
// the cascade.
func (s *Service) invalidateAllForProviderSub(ctx context.Context, providerSub, reason string) int {
	sessions, err := s.sessions.GetByProviderSub(ctx, providerSub)
	if err != nil {
		log.Warn().Err(err).Str("provider_sub", providerSub).Msg("session lookup for cascade invalidation failed")
		return 0
	}
	for _, session := range sessions {
		if !s.invalidateSession(ctx, session, reason) {
			log.Warn().Str("sid", session.SID).Msg("session invalidation failed, continuing cascade")
		}
	}
	return len(sessions)
}

// invalidateSession archives the session (best-effort) and hard-deletes it
// from the live store.
func (s *Service) invalidateSession(ctx context.Context, session *auth.Session, reason string) bool {
	if s.archive != nil {
		if err := s.archive.Archive(ctx, session, reason); err != nil {
			log.Warn().Err(err).Str("sid", session.SID).Msg("session archive write failed")
		}
	}
	ok, err := s.sessions.Invalidate(ctx, session.SID)
	if err != nil {
		log.Warn().Err(err).Str("sid", session.SID).Msg("session invalidation failed")
		return false
	}
	return ok
}

// userClaims builds the standard user access-token claim set.
func (s *Service) userClaims(userID, providerSub, sid string, sidv int) auth.JWTClaims {
	return auth.NewUserClaims(auth.UserClaimsInput{
		Issuer:      s.cfg.Auth.JWTIssuer,
		Audience:    s.cfg.Auth.JWTAudience,
		Subject:     userID,
		JTI:         uuid.NewString(),
		TTL:         s.cfg.Auth.AccessTokenTTL,
		SID:         sid,
		SIDV:        sidv,
		ProviderSub: providerSub,
		Scopes:      auth.DefaultUserScopes(),
		Roles:       []string{"user"},
		Azp:         s.cfg.Auth.AzpDefault,
		IDP:         s.cfg.Auth.IDPName,
	})
}

// mapProviderErr keeps taxonomy errors intact and folds anything else into
// the provider-unavailable kind.
func (s *Service) mapProviderErr(err error) error {
	switch {
	case errors.Is(err, auth.ErrProviderUnavailable),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return err
	}
	if _, ok := auth.AsValidationError(err); ok {
		return err
	}
	return fmt.Errorf("%w: %v", auth.ErrProviderUnavailable, err)
}
