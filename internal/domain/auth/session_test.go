package auth

import (
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:          "user-1",
		ProviderSub: "sub-1",
		Email:       "jo@example.com",
		Enabled:     true,
		UserStatus:  "CONFIRMED",
	}
}

func TestNewSession(t *testing.T) {
	meta := SessionMetadata{DeviceInfo: "cli", IPAddress: "10.0.0.1", UserAgent: "test"}
	s := NewSession("sid-1", testUser(), "refresh-1", 30*time.Minute, meta)

	if s.SID != "sid-1" || s.UserID != "user-1" || s.ProviderSub != "sub-1" {
		t.Fatalf("unexpected identity fields: %+v", s)
	}
	if s.RefreshToken != "refresh-1" {
		t.Errorf("refresh token not carried")
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	if s.IPAddress != "10.0.0.1" || s.UserAgent != "test" || s.DeviceInfo != "cli" {
		t.Errorf("metadata not carried: %+v", s)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != 30*time.Minute {
		t.Errorf("lifetime = %v, want 30m", got)
	}
	if !s.IsValid() {
		t.Errorf("fresh session should be valid")
	}
}

func TestSessionExpiry(t *testing.T) {
	s := NewSession("sid-1", testUser(), "", time.Millisecond, SessionMetadata{})
	s.ExpiresAt = time.Now().Add(-time.Second)

	if !s.IsExpired() {
		t.Errorf("session past ExpiresAt should be expired")
	}
	if s.IsValid() {
		t.Errorf("expired session should not be valid")
	}

	var nilSession *Session
	if nilSession.IsValid() {
		t.Errorf("nil session should not be valid")
	}
}

func TestSessionShouldRefresh(t *testing.T) {
	s := NewSession("sid-1", testUser(), "", time.Hour, SessionMetadata{})

	if s.ShouldRefresh(10 * time.Minute) {
		t.Errorf("session with 1h left should not need refresh at 10m threshold")
	}
	if !s.ShouldRefresh(2 * time.Hour) {
		t.Errorf("session within threshold should need refresh")
	}

	s.ExpiresAt = time.Now().Add(-time.Second)
	if s.ShouldRefresh(2 * time.Hour) {
		t.Errorf("expired session should never request refresh")
	}
}

func TestSessionTouched(t *testing.T) {
	s := NewSession("sid-1", testUser(), "refresh-1", time.Hour, SessionMetadata{})
	before := s.LastAccessed

	time.Sleep(2 * time.Millisecond)
	touched := s.Touched()

	if touched.Version != 2 {
		t.Errorf("touched Version = %d, want 2", touched.Version)
	}
	if !touched.LastAccessed.After(before) {
		t.Errorf("LastAccessed not advanced")
	}
	if s.Version != 1 {
		t.Errorf("receiver mutated: Version = %d", s.Version)
	}
	if touched.RefreshToken != "refresh-1" {
		t.Errorf("refresh token lost on touch")
	}
}

func TestCipherSessionLifecycle(t *testing.T) {
	jwk := ECPublicKeyJWK{Kty: "EC", Crv: "P-256", X: "x", Y: "y", Use: "enc"}
	cs := NewCipherSession("csid-1", []byte("pem"), jwk, DefaultCipherSessionTTL)

	if !cs.IsValid() {
		t.Errorf("fresh cipher session should be valid")
	}
	if got := cs.ExpiresAt.Sub(cs.CreatedAt); got != DefaultCipherSessionTTL {
		t.Errorf("lifetime = %v, want %v", got, DefaultCipherSessionTTL)
	}

	cs.ExpiresAt = time.Now().Add(-time.Second)
	if cs.IsValid() {
		t.Errorf("expired cipher session should not be valid")
	}

	var nilCS *CipherSession
	if nilCS.IsValid() {
		t.Errorf("nil cipher session should not be valid")
	}
}
