package auth

import "strings"

// User is a read-only snapshot of an identity-provider account. It is fetched
// per orchestration call and never cached beyond it.
type User struct {
	ID                string `json:"id"`
	ProviderSub       string `json:"provider_sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	Enabled           bool   `json:"enabled"`
	UserStatus        string `json:"user_status"`
}

// IsActive reports whether the account can authenticate.
func (u *User) IsActive() bool {
	return u.Enabled && (u.UserStatus == "CONFIRMED" || u.UserStatus == "FORCE_CHANGE_PASSWORD")
}

// DisplayName returns the best human-readable name available.
func (u *User) DisplayName() string {
	switch {
	case u.GivenName != "" && u.FamilyName != "":
		return u.GivenName + " " + u.FamilyName
	case u.GivenName != "":
		return u.GivenName
	case u.PreferredUsername != "":
		return u.PreferredUsername
	case u.Email != "":
		name, _, _ := strings.Cut(u.Email, "@")
		return name
	default:
		return u.ProviderSub
	}
}
