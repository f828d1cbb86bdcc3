package memory

import (
	"context"
	"sync"
	"time"

	"keygate/internal/domain/auth"
)

// CipherSessionStore is a process-local cipher session store. Take removes the
// entry under the lock, preserving the at-most-once guarantee.
type CipherSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*auth.CipherSession
}

// NewCipherSessionStore creates an empty in-memory cipher session store.
func NewCipherSessionStore() *CipherSessionStore {
	return &CipherSessionStore{sessions: make(map[string]*auth.CipherSession)}
}

func (s *CipherSessionStore) Save(_ context.Context, session *auth.CipherSession) error {
	if time.Until(session.ExpiresAt) <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.SID] = &c
	return nil
}

func (s *CipherSessionStore) Get(_ context.Context, sid string) (*auth.CipherSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sid]
	if !ok {
		return nil, nil
	}
	c := *session
	return &c, nil
}

func (s *CipherSessionStore) Delete(_ context.Context, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sid]; !ok {
		return false, nil
	}
	delete(s.sessions, sid)
	return true, nil
}

func (s *CipherSessionStore) Take(_ context.Context, sid string) (*auth.CipherSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sid]
	if !ok {
		return nil, nil
	}
	delete(s.sessions, sid)
	return session, nil
}
