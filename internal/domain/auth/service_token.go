package auth

import "strings"

// ServiceToken is the transient response entity for a minted service token.
// It is never persisted.
type ServiceToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	SubSPN      string `json:"sub_spn"`
	ActorSub    string `json:"actor_sub,omitempty"`
}

// ServiceNameFromSPN strips the "spn:" prefix from a service principal name.
func ServiceNameFromSPN(subSPN string) string {
	return strings.TrimPrefix(subSPN, "spn:")
}

// DefaultUserScopes returns the scopes granted to interactive user tokens.
func DefaultUserScopes() []string {
	return []string{"user.read", "usersettings.read", "usersettings.write"}
}

// DefaultServiceScopes returns the scopes a known service may request. Unknown
// services fall back to a namespaced wildcard.
func DefaultServiceScopes(serviceName string) []string {
	switch serviceName {
	case "bff":
		return []string{"svc.userprofiles.read", "svc.usersettings.read", "svc.usersettings.write"}
	case "userprofiles":
		return []string{"svc.usersettings.read"}
	case "usersettings":
		return []string{"svc.userprofiles.read"}
	default:
		return []string{"svc." + serviceName + ".*"}
	}
}
