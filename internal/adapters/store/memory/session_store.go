package memory

import (
	"context"
	"sync"
	"time"

	"keygate/internal/domain/auth"
)

// SessionStore is a process-local session store for development and tests.
// Expired entries are evicted lazily on read.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*auth.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*auth.Session)}
}

func (s *SessionStore) Save(_ context.Context, session *auth.Session) error {
	if time.Until(session.ExpiresAt) <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.SID] = &c
	return nil
}

func (s *SessionStore) Get(_ context.Context, sid string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sid]
	if !ok {
		return nil, nil
	}
	if session.IsExpired() {
		delete(s.sessions, sid)
		return nil, nil
	}
	c := *session
	return &c, nil
}

func (s *SessionStore) Update(ctx context.Context, session *auth.Session) error {
	return s.Save(ctx, session)
}

func (s *SessionStore) Delete(_ context.Context, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sid]; !ok {
		return false, nil
	}
	delete(s.sessions, sid)
	return true, nil
}

func (s *SessionStore) GetByUser(ctx context.Context, userID string) ([]*auth.Session, error) {
	return s.filter(func(session *auth.Session) bool { return session.UserID == userID }), nil
}

func (s *SessionStore) GetByProviderSub(ctx context.Context, providerSub string) ([]*auth.Session, error) {
	return s.filter(func(session *auth.Session) bool { return session.ProviderSub == providerSub }), nil
}

func (s *SessionStore) GetByUsername(ctx context.Context, username string) ([]*auth.Session, error) {
	return s.GetByProviderSub(ctx, username)
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, _ := s.GetByUser(ctx, userID)
	deleted := 0
	for _, session := range sessions {
		if ok, _ := s.Delete(ctx, session.SID); ok {
			deleted++
		}
	}
	return deleted, nil
}

func (s *SessionStore) Invalidate(ctx context.Context, sid string) (bool, error) {
	return s.Delete(ctx, sid)
}

func (s *SessionStore) filter(keep func(*auth.Session) bool) []*auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.Session
	for sid, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, sid)
			continue
		}
		if keep(session) {
			c := *session
			out = append(out, &c)
		}
	}
	return out
}
