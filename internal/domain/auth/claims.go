package auth

import (
	"strings"
	"time"
)

// Claim schema version, bumped when the claim layout changes incompatibly.
const ClaimsVersion = 1

// Token use discriminators.
const (
	TokenUseAccess  = "access"
	TokenUseService = "svc"
)

// ECPublicKeyJWK is a P-256 public key in JWK form, used both for the JWKS
// document and for the password-cipher key exchange.
type ECPublicKeyJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
}

// JWKS is the published JSON Web Key Set.
type JWKS struct {
	Keys []ECPublicKeyJWK `json:"keys"`
}

// Actor identifies the delegated end user inside a service token ("on behalf of").
type Actor struct {
	Sub   string   `json:"sub"`
	Scope string   `json:"scope,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// JWTClaims is the immutable claim set minted into access and service tokens.
type JWTClaims struct {
	// Standard claims
	Iss string `json:"iss"`
	Sub string `json:"sub"`
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
	JTI string `json:"jti"`

	// Auth context
	AuthTime int64    `json:"auth_time,omitempty"`
	Azp      string   `json:"azp,omitempty"`
	Amr      []string `json:"amr,omitempty"`

	// Application claims
	SID         string   `json:"sid,omitempty"`
	SIDV        int      `json:"sidv,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	IDP         string   `json:"idp,omitempty"`
	ProviderSub string   `json:"provider_sub,omitempty"`
	Ver         int      `json:"ver"`

	// Service token claims
	TokenUse string `json:"token_use"`
	Act      *Actor `json:"act,omitempty"`
}

// UserClaimsInput bundles the parameters for a user access token.
type UserClaimsInput struct {
	Issuer   string
	Audience string
	Subject  string
	JTI      string
	TTL      time.Duration

	SID         string
	SIDV        int
	ProviderSub string
	Scopes      []string
	Roles       []string
	Azp         string
	IDP         string
}

// NewUserClaims builds the claim set for a user access token. amr is fixed to
// password authentication; callers issuing OAuth-originated tokens keep it as
// is since the provider already vouched for the method.
func NewUserClaims(in UserClaimsInput) JWTClaims {
	now := time.Now().Unix()
	return JWTClaims{
		Iss:         in.Issuer,
		Sub:         in.Subject,
		Aud:         in.Audience,
		Exp:         now + int64(in.TTL.Seconds()),
		Iat:         now,
		JTI:         in.JTI,
		AuthTime:    now,
		Azp:         in.Azp,
		Amr:         []string{"pwd"},
		SID:         in.SID,
		SIDV:        in.SIDV,
		Roles:       in.Roles,
		Scope:       joinScopes(in.Scopes),
		IDP:         in.IDP,
		ProviderSub: in.ProviderSub,
		Ver:         ClaimsVersion,
		TokenUse:    TokenUseAccess,
	}
}

// ServiceClaimsInput bundles the parameters for a service token.
type ServiceClaimsInput struct {
	Issuer string
	SubSPN string
	JTI    string
	TTL    time.Duration
	Scopes []string
	Actor  *Actor
}

// NewServiceClaims builds the claim set for a service-to-service token. The
// audience is always "internal" regardless of what the caller asked for.
func NewServiceClaims(in ServiceClaimsInput) JWTClaims {
	now := time.Now().Unix()
	return JWTClaims{
		Iss:      in.Issuer,
		Sub:      in.SubSPN,
		Aud:      "internal",
		Exp:      now + int64(in.TTL.Seconds()),
		Iat:      now,
		JTI:      in.JTI,
		Amr:      []string{"svc"},
		Scope:    joinScopes(in.Scopes),
		Ver:      ClaimsVersion,
		TokenUse: TokenUseService,
		Act:      in.Actor,
	}
}

// Map flattens the claims into a payload map for JWT encoding. Required claims
// are placed first and optional claims only when set, so extensions can never
// shadow iss/sub/aud/exp/iat/jti.
func (c JWTClaims) Map() map[string]any {
	m := map[string]any{
		"iss":       c.Iss,
		"sub":       c.Sub,
		"aud":       c.Aud,
		"exp":       c.Exp,
		"iat":       c.Iat,
		"jti":       c.JTI,
		"ver":       c.Ver,
		"token_use": c.TokenUse,
	}
	if c.AuthTime != 0 {
		m["auth_time"] = c.AuthTime
	}
	if c.Azp != "" {
		m["azp"] = c.Azp
	}
	if len(c.Amr) > 0 {
		m["amr"] = c.Amr
	}
	if c.SID != "" {
		m["sid"] = c.SID
	}
	if c.SIDV != 0 {
		m["sidv"] = c.SIDV
	}
	if len(c.Roles) > 0 {
		m["roles"] = c.Roles
	}
	if c.Scope != "" {
		m["scope"] = c.Scope
	}
	if c.IDP != "" {
		m["idp"] = c.IDP
	}
	if c.ProviderSub != "" {
		m["provider_sub"] = c.ProviderSub
	}
	if c.Act != nil {
		act := map[string]any{"sub": c.Act.Sub}
		if c.Act.Scope != "" {
			act["scope"] = c.Act.Scope
		}
		if len(c.Act.Roles) > 0 {
			act["roles"] = c.Act.Roles
		}
		m["act"] = act
	}
	return m
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
