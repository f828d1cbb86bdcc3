package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

// ServiceTokenInput is a client-credentials grant request for one calling
// service, optionally carrying the delegated end user for on-behalf-of calls.
type ServiceTokenInput struct {
	ClientID     string
	ClientSecret string
	SubSPN       string
	Scope        string

	ActorSub   string
	ActorScope string
	ActorRoles []string
}

// MintServiceToken authenticates a registered service client and mints a
// short-lived service token. The audience is always "internal"; requested
// scopes default to the per-service table when absent.
func (s *Service) MintServiceToken(ctx context.Context, in ServiceTokenInput) (*auth.ServiceToken, error) {
	if in.SubSPN == "" {
		return nil, auth.NewValidationError(auth.ReasonMissingField, "sub_spn is required")
	}
	if in.ClientID == "" || in.ClientSecret == "" {
		return nil, auth.ErrUnauthorizedClient
	}

	name := auth.ServiceNameFromSPN(in.SubSPN)
	if !s.authenticateServiceClient(name, in.ClientID, in.ClientSecret) {
		log.Warn().Str("service", name).Msg("service client authentication failed")
		return nil, auth.ErrUnauthorizedClient
	}

	scopes := strings.Fields(in.Scope)
	if len(scopes) == 0 {
		scopes = auth.DefaultServiceScopes(name)
	}

	var actor *auth.Actor
	if in.ActorSub != "" {
		actor = &auth.Actor{Sub: in.ActorSub, Scope: in.ActorScope, Roles: in.ActorRoles}
	}

	claims := auth.NewServiceClaims(auth.ServiceClaimsInput{
		Issuer: s.cfg.Auth.JWTIssuer,
		SubSPN: in.SubSPN,
		JTI:    uuid.NewString(),
		TTL:    s.cfg.Service.TokenTTL,
		Scopes: scopes,
		Actor:  actor,
	})
	token, err := s.signer.Mint(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrServiceToken, err)
	}

	log.Info().Str("service", name).Str("actor_sub", in.ActorSub).Msg("service token issued")
	return &auth.ServiceToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.Service.TokenTTL.Seconds()),
		Scope:       strings.Join(scopes, " "),
		SubSPN:      in.SubSPN,
		ActorSub:    in.ActorSub,
	}, nil
}

// authenticateServiceClient compares the presented credentials against the
// registration for the named service in constant time.
func (s *Service) authenticateServiceClient(name, clientID, clientSecret string) bool {
	wantID, okID := s.cfg.Service.ClientIDs[name]
	wantSecret, okSecret := s.cfg.Service.ClientSecrets[name]
	if !okID || !okSecret {
		return false
	}
	idMatch := subtle.ConstantTimeCompare([]byte(clientID), []byte(wantID))
	secretMatch := subtle.ConstantTimeCompare([]byte(clientSecret), []byte(wantSecret))
	return idMatch&secretMatch == 1
}
