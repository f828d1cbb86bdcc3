package auth

import "time"

// Session represents a server-side user session backing stateless access tokens.
// Version starts at 1 and increases on every mutation; it is bound into user
// JWTs as the sidv claim so stale tokens can be rejected.
type Session struct {
	SID          string    `json:"sid"`
	UserID       string    `json:"user_id"`
	ProviderSub  string    `json:"provider_sub"`
	RefreshToken string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Version      int       `json:"version"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

// SessionMetadata carries optional client context captured at login.
type SessionMetadata struct {
	DeviceInfo string
	IPAddress  string
	UserAgent  string
}

// NewSession creates a session for a freshly authenticated user.
func NewSession(sid string, user *User, refreshToken string, ttl time.Duration, meta SessionMetadata) *Session {
	now := time.Now().UTC()
	return &Session{
		SID:          sid,
		UserID:       user.ID,
		ProviderSub:  user.ProviderSub,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
		Version:      1,
		DeviceInfo:   meta.DeviceInfo,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
}

// IsExpired checks if the session has passed its expiry time
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid checks if the session is usable (non-nil and not expired)
func (s *Session) IsValid() bool {
	return s != nil && !s.IsExpired()
}

// ShouldRefresh reports whether the session is valid but close enough to
// expiry that the upstream refresh token should be exercised.
func (s *Session) ShouldRefresh(threshold time.Duration) bool {
	if !s.IsValid() {
		return false
	}
	return time.Until(s.ExpiresAt) <= threshold
}

// Touched returns a copy with LastAccessed set to now and Version bumped.
// The receiver is not modified.
func (s *Session) Touched() *Session {
	c := *s
	c.LastAccessed = time.Now().UTC()
	c.Version++
	return &c
}
